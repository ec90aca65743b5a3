package services

import (
	"devcamp/utils"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Advanced list queries: filtering, sorting, field selection, and pagination
// parsed from the request query string into gorm clauses. Handlers forward
// the parsed params without applying any policy of their own.
//
// Filters use a bracketed operator suffix, e.g. ?averageCost[lte]=10000 or
// ?housing=true. Sort takes comma separated fields with a '-' prefix for
// descending, e.g. ?sort=-createdAt,name.

const (
	defaultPage  = 1
	defaultLimit = 25
	maxLimit     = 100
)

var filterOps = map[string]string{
	"":    "=",
	"ne":  "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldNumber
	fieldBool
	fieldTime
)

// listField describes a filterable/sortable field: the database column it
// maps to and the type filter values must be converted to before binding.
// Binding raw strings against numeric or boolean columns matches nothing.
type listField struct {
	column string
	kind   fieldKind
}

func (f listField) convert(raw string) (interface{}, error) {
	switch f.kind {
	case fieldBool:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean filter value '%v'", raw)
		}
		return value, nil
	case fieldNumber:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric filter value '%v'", raw)
		}
		return value, nil
	case fieldTime:
		if value, err := time.Parse(time.RFC3339, raw); err == nil {
			return value, nil
		}
		value, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp filter value '%v'", raw)
		}
		return value, nil
	default:
		return raw, nil
	}
}

type filterClause struct {
	column string
	op     string
	values []interface{}
}

type ListParams struct {
	selectColumns []string
	order         []string
	filters       []filterClause
	page          int
	limit         int
}

// reserved params that are never treated as filter fields
func isReservedParam(key string) bool {
	switch key {
	case "select", "sort", "page", "limit":
		return true
	}
	return false
}

func splitFilterKey(key string) (field, op string) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}

// ParseListParams validates the query string against the resource's allowed
// fields, a map from external (camelCase) field name to its column and type.
func ParseListParams(query url.Values, allowedFields map[string]listField) (ListParams, error) {
	params := ListParams{page: defaultPage, limit: defaultLimit}

	if sel := query.Get("select"); sel != "" {
		for _, field := range strings.Split(sel, ",") {
			spec, ok := allowedFields[field]
			if !ok {
				return ListParams{}, fmt.Errorf("cannot select unknown field '%v'", field)
			}
			params.selectColumns = append(params.selectColumns, spec.column)
		}
	}

	if sort := query.Get("sort"); sort != "" {
		for _, field := range strings.Split(sort, ",") {
			desc := strings.HasPrefix(field, "-")
			field = strings.TrimPrefix(field, "-")
			spec, ok := allowedFields[field]
			if !ok {
				return ListParams{}, fmt.Errorf("cannot sort by unknown field '%v'", field)
			}
			column := spec.column
			if desc {
				column += " DESC"
			}
			params.order = append(params.order, column)
		}
	}

	if page := query.Get("page"); page != "" {
		p, err := strconv.Atoi(page)
		if err != nil || p < 1 {
			return ListParams{}, fmt.Errorf("invalid page '%v'", page)
		}
		params.page = p
	}

	if limit := query.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l < 1 {
			return ListParams{}, fmt.Errorf("invalid limit '%v'", limit)
		}
		params.limit = min(l, maxLimit)
	}

	for key, values := range query {
		if isReservedParam(key) || len(values) == 0 {
			continue
		}

		field, op := splitFilterKey(key)
		spec, ok := allowedFields[field]
		if !ok {
			return ListParams{}, fmt.Errorf("cannot filter by unknown field '%v'", field)
		}

		if op == "in" {
			raw := strings.Split(values[0], ",")
			converted := make([]interface{}, 0, len(raw))
			for _, value := range raw {
				typed, err := spec.convert(value)
				if err != nil {
					return ListParams{}, fmt.Errorf("field '%v': %w", field, err)
				}
				converted = append(converted, typed)
			}
			params.filters = append(params.filters, filterClause{column: spec.column, op: "in", values: converted})
			continue
		}

		sqlOp, ok := filterOps[op]
		if !ok {
			return ListParams{}, fmt.Errorf("unknown filter operator '%v' for field '%v'", op, field)
		}

		typed, err := spec.convert(values[0])
		if err != nil {
			return ListParams{}, fmt.Errorf("field '%v': %w", field, err)
		}
		params.filters = append(params.filters, filterClause{column: spec.column, op: sqlOp, values: []interface{}{typed}})
	}

	return params, nil
}

// applyFilters attaches only the filter clauses, shared by the page query
// and the total count query.
func (p ListParams) applyFilters(db *gorm.DB) *gorm.DB {
	for _, filter := range p.filters {
		if filter.op == "in" {
			db = db.Where(fmt.Sprintf("%v IN ?", filter.column), filter.values)
		} else {
			db = db.Where(fmt.Sprintf("%v %v ?", filter.column, filter.op), filter.values[0])
		}
	}
	return db
}

// Apply attaches the filter/sort/select/pagination clauses to a query.
func (p ListParams) Apply(db *gorm.DB) *gorm.DB {
	db = p.applyFilters(db)

	if len(p.selectColumns) > 0 {
		db = db.Select(p.selectColumns)
	}

	for _, order := range p.order {
		db = db.Order(order)
	}

	return db.Offset((p.page - 1) * p.limit).Limit(p.limit)
}

// Pagination builds the next/prev page references for a listing with the
// given total number of matching rows.
func (p ListParams) Pagination(total int64) *utils.Pagination {
	pagination := &utils.Pagination{}
	if p.page > 1 {
		pagination.Prev = &utils.PageRef{Page: p.page - 1, Limit: p.limit}
	}
	if int64(p.page*p.limit) < total {
		pagination.Next = &utils.PageRef{Page: p.page + 1, Limit: p.limit}
	}
	return pagination
}

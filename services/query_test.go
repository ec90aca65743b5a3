package services

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAllowedFields = map[string]listField{
	"name":        {column: "name"},
	"averageCost": {column: "average_cost", kind: fieldNumber},
	"housing":     {column: "housing", kind: fieldBool},
	"createdAt":   {column: "created_at", kind: fieldTime},
}

func TestParseListParamsDefaults(t *testing.T) {
	params, err := ParseListParams(url.Values{}, testAllowedFields)
	require.NoError(t, err)

	assert.Equal(t, defaultPage, params.page)
	assert.Equal(t, defaultLimit, params.limit)
	assert.Empty(t, params.filters)
	assert.Empty(t, params.selectColumns)
	assert.Empty(t, params.order)
}

func TestParseListParamsSelectAndSort(t *testing.T) {
	query, err := url.ParseQuery("select=name,averageCost&sort=-createdAt,name")
	require.NoError(t, err)

	params, err := ParseListParams(query, testAllowedFields)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "average_cost"}, params.selectColumns)
	assert.Equal(t, []string{"created_at DESC", "name"}, params.order)

	_, err = ParseListParams(url.Values{"select": {"password"}}, testAllowedFields)
	assert.ErrorContains(t, err, "unknown field 'password'")

	_, err = ParseListParams(url.Values{"sort": {"password"}}, testAllowedFields)
	assert.ErrorContains(t, err, "unknown field 'password'")
}

func TestParseListParamsFilters(t *testing.T) {
	query, err := url.ParseQuery("averageCost[lte]=10000&housing=true&name[in]=a,b,c")
	require.NoError(t, err)

	params, err := ParseListParams(query, testAllowedFields)
	require.NoError(t, err)

	require.Len(t, params.filters, 3)

	byColumn := make(map[string]filterClause)
	for _, f := range params.filters {
		byColumn[f.column] = f
	}

	assert.Equal(t, filterClause{column: "average_cost", op: "<=", values: []interface{}{10000.0}}, byColumn["average_cost"])
	assert.Equal(t, filterClause{column: "housing", op: "=", values: []interface{}{true}}, byColumn["housing"])
	assert.Equal(t, filterClause{column: "name", op: "in", values: []interface{}{"a", "b", "c"}}, byColumn["name"])

	_, err = ParseListParams(url.Values{"secret[gt]": {"1"}}, testAllowedFields)
	assert.ErrorContains(t, err, "unknown field 'secret'")

	_, err = ParseListParams(url.Values{"name[like]": {"a"}}, testAllowedFields)
	assert.ErrorContains(t, err, "unknown filter operator 'like'")
}

// Values must reach the WHERE clause typed, not as raw strings, else boolean
// and numeric columns never match.
func TestParseListParamsValueConversion(t *testing.T) {
	params, err := ParseListParams(url.Values{"housing": {"false"}}, testAllowedFields)
	require.NoError(t, err)
	require.Len(t, params.filters, 1)
	assert.Equal(t, []interface{}{false}, params.filters[0].values)

	params, err = ParseListParams(url.Values{"averageCost[in]": {"8000,9000"}}, testAllowedFields)
	require.NoError(t, err)
	require.Len(t, params.filters, 1)
	assert.Equal(t, []interface{}{8000.0, 9000.0}, params.filters[0].values)

	params, err = ParseListParams(url.Values{"createdAt[gte]": {"2025-01-02"}}, testAllowedFields)
	require.NoError(t, err)
	require.Len(t, params.filters, 1)
	assert.Equal(t, []interface{}{time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}, params.filters[0].values)

	_, err = ParseListParams(url.Values{"housing": {"banana"}}, testAllowedFields)
	assert.ErrorContains(t, err, "invalid boolean filter value 'banana'")

	_, err = ParseListParams(url.Values{"averageCost[gt]": {"cheap"}}, testAllowedFields)
	assert.ErrorContains(t, err, "invalid numeric filter value 'cheap'")

	_, err = ParseListParams(url.Values{"createdAt": {"yesterday"}}, testAllowedFields)
	assert.ErrorContains(t, err, "invalid timestamp filter value 'yesterday'")
}

func TestListParamsPagination(t *testing.T) {
	query, err := url.ParseQuery("page=2&limit=3")
	require.NoError(t, err)

	params, err := ParseListParams(query, testAllowedFields)
	require.NoError(t, err)

	pagination := params.Pagination(7)
	require.NotNil(t, pagination.Prev)
	assert.Equal(t, 1, pagination.Prev.Page)
	assert.Equal(t, 3, pagination.Prev.Limit)
	require.NotNil(t, pagination.Next)
	assert.Equal(t, 3, pagination.Next.Page)
	assert.Equal(t, 3, pagination.Next.Limit)

	// page 2 of 3 holds the last row, no next page
	pagination = params.Pagination(6)
	assert.Nil(t, pagination.Next)

	params, err = ParseListParams(url.Values{}, testAllowedFields)
	require.NoError(t, err)
	pagination = params.Pagination(10)
	assert.Nil(t, pagination.Prev)
	assert.Nil(t, pagination.Next)
}

func TestParseListParamsPagination(t *testing.T) {
	query, err := url.ParseQuery("page=3&limit=10")
	require.NoError(t, err)

	params, err := ParseListParams(query, testAllowedFields)
	require.NoError(t, err)
	assert.Equal(t, 3, params.page)
	assert.Equal(t, 10, params.limit)

	// an oversized limit is clamped rather than rejected
	params, err = ParseListParams(url.Values{"limit": {"5000"}}, testAllowedFields)
	require.NoError(t, err)
	assert.Equal(t, maxLimit, params.limit)

	_, err = ParseListParams(url.Values{"page": {"0"}}, testAllowedFields)
	assert.ErrorContains(t, err, "invalid page")

	_, err = ParseListParams(url.Values{"limit": {"abc"}}, testAllowedFields)
	assert.ErrorContains(t, err, "invalid limit")
}

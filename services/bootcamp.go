package services

import (
	"devcamp/auth"
	"devcamp/geocode"
	"devcamp/schema"
	"devcamp/storage"
	"devcamp/utils"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type BootcampService struct {
	db *gorm.DB

	storage  storage.Storage
	geocoder geocode.Geocoder
	userAuth auth.IdentityProvider

	maxUploadBytes int64
}

// bootcampAllowedFields maps external field names to columns for the list
// query collaborator.
var bootcampAllowedFields = map[string]listField{
	"name":          {column: "name"},
	"housing":       {column: "housing", kind: fieldBool},
	"jobAssistance": {column: "job_assistance", kind: fieldBool},
	"jobGuarantee":  {column: "job_guarantee", kind: fieldBool},
	"acceptGiBill":  {column: "accept_gi_bill", kind: fieldBool},
	"averageCost":   {column: "average_cost", kind: fieldNumber},
	"averageRating": {column: "average_rating", kind: fieldNumber},
	"createdAt":     {column: "created_at", kind: fieldTime},
}

func (s *BootcampService) Routes(courseRoutes, reviewRoutes chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/radius/{zipcode}/{distance}", s.Radius)
	r.Get("/{bootcamp_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RoleOnly(schema.RolePublisher))

		r.Post("/", s.Create)
		r.Put("/{bootcamp_id}", s.Update)
		r.Delete("/{bootcamp_id}", s.Delete)
		r.Put("/{bootcamp_id}/photo", s.PhotoUpload)
	})

	if courseRoutes != nil {
		r.Mount("/{bootcamp_id}/courses", courseRoutes)
	}
	if reviewRoutes != nil {
		r.Mount("/{bootcamp_id}/reviews", reviewRoutes)
	}

	return r
}

type BootcampInfo struct {
	Id uuid.UUID `json:"id"`

	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address,omitempty"`

	Careers []string `json:"careers,omitempty"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Photo string `json:"photo,omitempty"`

	Housing       bool `json:"housing"`
	JobAssistance bool `json:"jobAssistance"`
	JobGuarantee  bool `json:"jobGuarantee"`
	AcceptGiBill  bool `json:"acceptGiBill"`

	AverageRating *float64 `json:"averageRating,omitempty"`
	AverageCost   *float64 `json:"averageCost,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	UserId uuid.UUID `json:"userId"`
}

func convertToBootcampInfo(bootcamp *schema.Bootcamp) BootcampInfo {
	return BootcampInfo{
		Id:            bootcamp.Id,
		Name:          bootcamp.Name,
		Description:   bootcamp.Description,
		Website:       bootcamp.Website,
		Phone:         bootcamp.Phone,
		Email:         bootcamp.Email,
		Address:       bootcamp.Address,
		Careers:       bootcamp.Careers,
		Latitude:      bootcamp.Latitude,
		Longitude:     bootcamp.Longitude,
		Photo:         bootcamp.Photo,
		Housing:       bootcamp.Housing,
		JobAssistance: bootcamp.JobAssistance,
		JobGuarantee:  bootcamp.JobGuarantee,
		AcceptGiBill:  bootcamp.AcceptGiBill,
		AverageRating: bootcamp.AverageRating,
		AverageCost:   bootcamp.AverageCost,
		CreatedAt:     bootcamp.CreatedAt,
		UserId:        bootcamp.UserId,
	}
}

func (s *BootcampService) List(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), bootcampAllowedFields)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var total int64
	result := params.applyFilters(s.db.Model(&schema.Bootcamp{})).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting bootcamps", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing bootcamps: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	var bootcamps []schema.Bootcamp
	result = params.Apply(s.db).Find(&bootcamps)
	if result.Error != nil {
		slog.Error("sql error listing bootcamps", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing bootcamps: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]BootcampInfo, 0, len(bootcamps))
	for _, bootcamp := range bootcamps {
		infos = append(infos, convertToBootcampInfo(&bootcamp))
	}

	utils.WriteListResponse(w, len(infos), params.Pagination(total), infos)
}

func (s *BootcampService) Get(w http.ResponseWriter, r *http.Request) {
	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bootcamp, err := schema.GetBootcamp(bootcampId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrBootcampNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToBootcampInfo(&bootcamp))
}

type createBootcampRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`

	Careers []string `json:"careers"`

	Housing       bool `json:"housing"`
	JobAssistance bool `json:"jobAssistance"`
	JobGuarantee  bool `json:"jobGuarantee"`
	AcceptGiBill  bool `json:"acceptGiBill"`
}

func (params *createBootcampRequest) validate() error {
	if params.Name == "" {
		return errors.New("bootcamp name must be specified")
	}
	if params.Description == "" {
		return errors.New("bootcamp description must be specified")
	}
	if params.Address == "" {
		return errors.New("bootcamp address must be specified")
	}
	return nil
}

func (s *BootcampService) Create(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(bootcampCreateMetric)
	defer timer.ObserveDuration()

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createBootcampRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Resolve the address up front so the denormalized point is stored with
	// the row. The geocoder round trip stays outside the transaction.
	locations, err := s.geocoder.Geocode(r.Context(), params.Address)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			utils.WriteError(w, fmt.Sprintf("unable to geocode address '%v'", params.Address), http.StatusBadRequest)
			return
		}
		utils.WriteError(w, fmt.Sprintf("error geocoding address: %v", err), http.StatusInternalServerError)
		return
	}
	location := locations[0]

	bootcamp := schema.Bootcamp{
		Id:            uuid.New(),
		Name:          params.Name,
		Description:   params.Description,
		Website:       params.Website,
		Phone:         params.Phone,
		Email:         params.Email,
		Address:       params.Address,
		Careers:       params.Careers,
		Latitude:      location.Latitude,
		Longitude:     location.Longitude,
		Housing:       params.Housing,
		JobAssistance: params.JobAssistance,
		JobGuarantee:  params.JobGuarantee,
		AcceptGiBill:  params.AcceptGiBill,
		CreatedAt:     time.Now().UTC(),
		UserId:        user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		allowed, err := auth.CanCreateBootcamp(user, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if !allowed {
			return CodedError(fmt.Errorf("user %v has already published a bootcamp", user.Id), http.StatusBadRequest)
		}

		result := txn.Create(&bootcamp)
		if result.Error != nil {
			slog.Error("sql error creating bootcamp", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("bootcamp created", "bootcamp_id", bootcamp.Id, "user_id", user.Id)

	utils.WriteCreatedResponse(w, convertToBootcampInfo(&bootcamp))
}

type updateBootcampRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`

	Careers *[]string `json:"careers"`

	Housing       *bool `json:"housing"`
	JobAssistance *bool `json:"jobAssistance"`
	JobGuarantee  *bool `json:"jobGuarantee"`
	AcceptGiBill  *bool `json:"acceptGiBill"`
}

func (params *updateBootcampRequest) apply(bootcamp *schema.Bootcamp) {
	if params.Name != nil {
		bootcamp.Name = *params.Name
	}
	if params.Description != nil {
		bootcamp.Description = *params.Description
	}
	if params.Website != nil {
		bootcamp.Website = *params.Website
	}
	if params.Phone != nil {
		bootcamp.Phone = *params.Phone
	}
	if params.Email != nil {
		bootcamp.Email = *params.Email
	}
	if params.Address != nil {
		bootcamp.Address = *params.Address
	}
	if params.Careers != nil {
		bootcamp.Careers = *params.Careers
	}
	if params.Housing != nil {
		bootcamp.Housing = *params.Housing
	}
	if params.JobAssistance != nil {
		bootcamp.JobAssistance = *params.JobAssistance
	}
	if params.JobGuarantee != nil {
		bootcamp.JobGuarantee = *params.JobGuarantee
	}
	if params.AcceptGiBill != nil {
		bootcamp.AcceptGiBill = *params.AcceptGiBill
	}
}

func (s *BootcampService) Update(w http.ResponseWriter, r *http.Request) {
	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateBootcampRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	existing, err := schema.GetBootcamp(bootcampId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrBootcampNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !auth.CanMutate(existing.UserId, user) {
		utils.WriteError(w, fmt.Sprintf("user %v is not authorized to update bootcamp %v", user.Id, bootcampId), http.StatusForbidden)
		return
	}

	// Re-geocode before entering the transaction if the address changes.
	// The existence and ownership checks above run first so a bad address
	// cannot mask a missing or foreign bootcamp.
	var newLocation *geocode.Location
	if params.Address != nil {
		locations, err := s.geocoder.Geocode(r.Context(), *params.Address)
		if err != nil {
			if errors.Is(err, geocode.ErrNoResults) {
				utils.WriteError(w, fmt.Sprintf("unable to geocode address '%v'", *params.Address), http.StatusBadRequest)
				return
			}
			utils.WriteError(w, fmt.Sprintf("error geocoding address: %v", err), http.StatusInternalServerError)
			return
		}
		newLocation = &locations[0]
	}

	var updated schema.Bootcamp

	err = s.db.Transaction(func(txn *gorm.DB) error {
		bootcamp, err := schema.GetBootcamp(bootcampId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrBootcampNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(bootcamp.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to update bootcamp %v", user.Id, bootcampId), http.StatusForbidden)
		}

		params.apply(&bootcamp)
		if newLocation != nil {
			bootcamp.Latitude = newLocation.Latitude
			bootcamp.Longitude = newLocation.Longitude
		}

		result := txn.Save(&bootcamp)
		if result.Error != nil {
			slog.Error("sql error updating bootcamp", "bootcamp_id", bootcampId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updated = bootcamp
		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	utils.WriteJsonResponse(w, convertToBootcampInfo(&updated))
}

func (s *BootcampService) Delete(w http.ResponseWriter, r *http.Request) {
	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		bootcamp, err := schema.GetBootcamp(bootcampId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrBootcampNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(bootcamp.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to delete bootcamp %v", user.Id, bootcampId), http.StatusForbidden)
		}

		result := txn.Where("bootcamp_id = ?", bootcampId).Delete(&schema.Course{})
		if result.Error != nil {
			slog.Error("sql error deleting bootcamp courses", "bootcamp_id", bootcampId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result = txn.Where("bootcamp_id = ?", bootcampId).Delete(&schema.Review{})
		if result.Error != nil {
			slog.Error("sql error deleting bootcamp reviews", "bootcamp_id", bootcampId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if bootcamp.Photo != "" {
			err = s.storage.Delete(photoPath(bootcamp.Photo))
			if err != nil {
				slog.Error("error deleting bootcamp photo", "bootcamp_id", bootcampId, "error", err)
				return CodedError(errors.New("error deleting bootcamp photo"), http.StatusInternalServerError)
			}
		}

		result = txn.Delete(&bootcamp)
		if result.Error != nil {
			slog.Error("sql error deleting bootcamp", "bootcamp_id", bootcampId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("bootcamp deleted", "bootcamp_id", bootcampId, "user_id", user.Id)

	utils.WriteSuccess(w)
}

func (s *BootcampService) Radius(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(radiusSearchMetric)
	defer timer.ObserveDuration()

	zipcode, err := utils.URLParam(r, "zipcode")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	distanceParam, err := utils.URLParam(r, "distance")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	distance, err := strconv.ParseFloat(distanceParam, 64)
	if err != nil || distance <= 0 {
		utils.WriteError(w, fmt.Sprintf("invalid distance '%v', must be a positive number of miles", distanceParam), http.StatusBadRequest)
		return
	}

	locations, err := s.geocoder.Geocode(r.Context(), zipcode)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			utils.WriteError(w, fmt.Sprintf("no location found for zipcode '%v'", zipcode), http.StatusNotFound)
			return
		}
		utils.WriteError(w, fmt.Sprintf("error geocoding zipcode: %v", err), http.StatusInternalServerError)
		return
	}
	location := locations[0]

	query := geocode.RadiusQuery(location.Latitude, location.Longitude, distance)

	// Bounding box prefilter in sql, exact spherical cap check on the
	// candidates it returns.
	minLat, maxLat, minLng, maxLng := query.BoundingBox()

	var candidates []schema.Bootcamp
	result := s.db.
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Find(&candidates)
	if result.Error != nil {
		slog.Error("sql error querying bootcamps in radius", "zipcode", zipcode, "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error searching bootcamps: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]BootcampInfo, 0, len(candidates))
	for _, bootcamp := range candidates {
		if query.Contains(bootcamp.Latitude, bootcamp.Longitude) {
			infos = append(infos, convertToBootcampInfo(&bootcamp))
		}
	}

	utils.WriteListResponse(w, len(infos), nil, infos)
}

func photoPath(filename string) string {
	return filepath.Join("photos", filename)
}

func (s *BootcampService) PhotoUpload(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(photoUploadMetric)
	defer timer.ObserveDuration()

	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	bootcamp, err := schema.GetBootcamp(bootcampId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrBootcampNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !auth.CanMutate(bootcamp.UserId, user) {
		utils.WriteError(w, fmt.Sprintf("user %v is not authorized to update bootcamp %v", user.Id, bootcampId), http.StatusForbidden)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, "a file must be attached to the request", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image") {
		utils.WriteError(w, fmt.Sprintf("uploaded file must be an image, got type '%v'", header.Header.Get("Content-Type")), http.StatusBadRequest)
		return
	}

	if header.Size > s.maxUploadBytes {
		utils.WriteError(w, fmt.Sprintf("uploaded file exceeds the %d byte limit", s.maxUploadBytes), http.StatusBadRequest)
		return
	}

	if err := checkDiskUsage(s.storage); err != nil {
		writeCodedError(w, err)
		return
	}

	// Deterministic stored name derived from the bootcamp id and the
	// original extension. Re-uploads overwrite the previous photo.
	filename := fmt.Sprintf("photo_%v%v", bootcampId, filepath.Ext(header.Filename))

	err = s.storage.Write(photoPath(filename), file)
	if err != nil {
		slog.Error("error persisting uploaded photo", "bootcamp_id", bootcampId, "error", err)
		utils.WriteError(w, "error storing uploaded photo", http.StatusInternalServerError)
		return
	}

	result := s.db.Model(&schema.Bootcamp{Id: bootcampId}).Update("photo", filename)
	if result.Error != nil {
		slog.Error("sql error saving photo filename", "bootcamp_id", bootcampId, "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error saving photo filename: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	slog.Info("bootcamp photo uploaded", "bootcamp_id", bootcampId, "filename", filename)

	utils.WriteJsonResponse(w, filename)
}

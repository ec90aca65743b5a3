package services

import (
	"devcamp/auth"
	"devcamp/schema"
	"devcamp/utils"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

var courseAllowedFields = map[string]listField{
	"title":                {column: "title"},
	"weeks":                {column: "weeks", kind: fieldNumber},
	"tuition":              {column: "tuition", kind: fieldNumber},
	"minimumSkill":         {column: "minimum_skill"},
	"scholarshipAvailable": {column: "scholarship_available", kind: fieldBool},
	"createdAt":            {column: "created_at", kind: fieldTime},
}

func (s *CourseService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{course_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RoleOnly(schema.RolePublisher))

		r.Put("/{course_id}", s.Update)
		r.Delete("/{course_id}", s.Delete)
	})

	return r
}

// NestedRoutes are mounted under /bootcamps/{bootcamp_id}/courses.
func (s *CourseService) NestedRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.ListForBootcamp)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RoleOnly(schema.RolePublisher))

		r.Post("/", s.Create)
	})

	return r
}

type CourseInfo struct {
	Id uuid.UUID `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	Weeks   int     `json:"weeks"`
	Tuition float64 `json:"tuition"`

	MinimumSkill         string `json:"minimumSkill"`
	ScholarshipAvailable bool   `json:"scholarshipAvailable"`

	CreatedAt time.Time `json:"createdAt"`

	BootcampId uuid.UUID `json:"bootcampId"`
	UserId     uuid.UUID `json:"userId"`
}

func convertToCourseInfo(course *schema.Course) CourseInfo {
	return CourseInfo{
		Id:                   course.Id,
		Title:                course.Title,
		Description:          course.Description,
		Weeks:                course.Weeks,
		Tuition:              course.Tuition,
		MinimumSkill:         course.MinimumSkill,
		ScholarshipAvailable: course.ScholarshipAvailable,
		CreatedAt:            course.CreatedAt,
		BootcampId:           course.BootcampId,
		UserId:               course.UserId,
	}
}

func (s *CourseService) List(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), courseAllowedFields)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var total int64
	result := params.applyFilters(s.db.Model(&schema.Course{})).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting courses", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing courses: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	var courses []schema.Course
	result = params.Apply(s.db).Find(&courses)
	if result.Error != nil {
		slog.Error("sql error listing courses", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing courses: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]CourseInfo, 0, len(courses))
	for _, course := range courses {
		infos = append(infos, convertToCourseInfo(&course))
	}

	utils.WriteListResponse(w, len(infos), params.Pagination(total), infos)
}

func (s *CourseService) ListForBootcamp(w http.ResponseWriter, r *http.Request) {
	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := checkBootcampExists(s.db, bootcampId); err != nil {
		writeCodedError(w, err)
		return
	}

	var courses []schema.Course
	result := s.db.Find(&courses, "bootcamp_id = ?", bootcampId)
	if result.Error != nil {
		slog.Error("sql error listing bootcamp courses", "bootcamp_id", bootcampId, "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing courses: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]CourseInfo, 0, len(courses))
	for _, course := range courses {
		infos = append(infos, convertToCourseInfo(&course))
	}

	utils.WriteListResponse(w, len(infos), nil, infos)
}

func (s *CourseService) Get(w http.ResponseWriter, r *http.Request) {
	courseId, err := utils.URLParamUUID(r, "course_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	course, err := schema.GetCourse(courseId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrCourseNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToCourseInfo(&course))
}

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	Weeks   int     `json:"weeks"`
	Tuition float64 `json:"tuition"`

	MinimumSkill         string `json:"minimumSkill"`
	ScholarshipAvailable bool   `json:"scholarshipAvailable"`
}

func (params *createCourseRequest) validate() error {
	if params.Title == "" {
		return errors.New("course title must be specified")
	}
	if params.Description == "" {
		return errors.New("course description must be specified")
	}
	if params.Weeks <= 0 {
		return errors.New("course duration in weeks must be positive")
	}
	if params.Tuition < 0 {
		return errors.New("course tuition cannot be negative")
	}
	return schema.CheckValidMinimumSkill(params.MinimumSkill)
}

func (s *CourseService) Create(w http.ResponseWriter, r *http.Request) {
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

	var params createCourseRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	course := schema.Course{
		Id:                   uuid.New(),
		Title:                params.Title,
		Description:          params.Description,
		Weeks:                params.Weeks,
		Tuition:              params.Tuition,
		MinimumSkill:         params.MinimumSkill,
		ScholarshipAvailable: params.ScholarshipAvailable,
		CreatedAt:            time.Now().UTC(),
		BootcampId:           bootcampId,
		UserId:               user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		bootcamp, err := schema.GetBootcamp(bootcampId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrBootcampNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// Adding a course mutates the bootcamp's listing, so the caller
		// must own the parent bootcamp.
		if !auth.CanMutate(bootcamp.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to add a course to bootcamp %v", user.Id, bootcampId), http.StatusForbidden)
		}

		result := txn.Create(&course)
		if result.Error != nil {
			slog.Error("sql error creating course", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return updateAverageCost(txn, bootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("course created", "course_id", course.Id, "bootcamp_id", bootcampId, "user_id", user.Id)

	utils.WriteCreatedResponse(w, convertToCourseInfo(&course))
}

type updateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	Weeks   *int     `json:"weeks"`
	Tuition *float64 `json:"tuition"`

	MinimumSkill         *string `json:"minimumSkill"`
	ScholarshipAvailable *bool   `json:"scholarshipAvailable"`
}

func (params *updateCourseRequest) apply(course *schema.Course) error {
	if params.Title != nil {
		course.Title = *params.Title
	}
	if params.Description != nil {
		course.Description = *params.Description
	}
	if params.Weeks != nil {
		if *params.Weeks <= 0 {
			return errors.New("course duration in weeks must be positive")
		}
		course.Weeks = *params.Weeks
	}
	if params.Tuition != nil {
		if *params.Tuition < 0 {
			return errors.New("course tuition cannot be negative")
		}
		course.Tuition = *params.Tuition
	}
	if params.MinimumSkill != nil {
		if err := schema.CheckValidMinimumSkill(*params.MinimumSkill); err != nil {
			return err
		}
		course.MinimumSkill = *params.MinimumSkill
	}
	if params.ScholarshipAvailable != nil {
		course.ScholarshipAvailable = *params.ScholarshipAvailable
	}
	return nil
}

func (s *CourseService) Update(w http.ResponseWriter, r *http.Request) {
	courseId, err := utils.URLParamUUID(r, "course_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateCourseRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var updated schema.Course

	err = s.db.Transaction(func(txn *gorm.DB) error {
		course, err := schema.GetCourse(courseId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrCourseNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(course.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to update course %v", user.Id, courseId), http.StatusForbidden)
		}

		if err := params.apply(&course); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		result := txn.Save(&course)
		if result.Error != nil {
			slog.Error("sql error updating course", "course_id", courseId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updated = course
		return updateAverageCost(txn, course.BootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	utils.WriteJsonResponse(w, convertToCourseInfo(&updated))
}

func (s *CourseService) Delete(w http.ResponseWriter, r *http.Request) {
	courseId, err := utils.URLParamUUID(r, "course_id")
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
		course, err := schema.GetCourse(courseId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrCourseNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(course.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to delete course %v", user.Id, courseId), http.StatusForbidden)
		}

		result := txn.Delete(&course)
		if result.Error != nil {
			slog.Error("sql error deleting course", "course_id", courseId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return updateAverageCost(txn, course.BootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("course deleted", "course_id", courseId, "user_id", user.Id)

	utils.WriteSuccess(w)
}

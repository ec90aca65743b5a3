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

type ReviewService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

var reviewAllowedFields = map[string]listField{
	"title":     {column: "title"},
	"rating":    {column: "rating", kind: fieldNumber},
	"createdAt": {column: "created_at", kind: fieldTime},
}

func (s *ReviewService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{review_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RoleOnly(schema.RoleUser))

		r.Put("/{review_id}", s.Update)
		r.Delete("/{review_id}", s.Delete)
	})

	return r
}

// NestedRoutes are mounted under /bootcamps/{bootcamp_id}/reviews.
func (s *ReviewService) NestedRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.ListForBootcamp)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.RoleOnly(schema.RoleUser))

		r.Post("/", s.Create)
	})

	return r
}

type ReviewInfo struct {
	Id uuid.UUID `json:"id"`

	Title  string `json:"title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`

	CreatedAt time.Time `json:"createdAt"`

	BootcampId uuid.UUID `json:"bootcampId"`
	UserId     uuid.UUID `json:"userId"`
}

func convertToReviewInfo(review *schema.Review) ReviewInfo {
	return ReviewInfo{
		Id:         review.Id,
		Title:      review.Title,
		Text:       review.Text,
		Rating:     review.Rating,
		CreatedAt:  review.CreatedAt,
		BootcampId: review.BootcampId,
		UserId:     review.UserId,
	}
}

func checkValidRating(rating int) error {
	if rating < 1 || rating > 10 {
		return fmt.Errorf("invalid rating %d, must be between 1 and 10", rating)
	}
	return nil
}

func (s *ReviewService) List(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), reviewAllowedFields)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var total int64
	result := params.applyFilters(s.db.Model(&schema.Review{})).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting reviews", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing reviews: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	var reviews []schema.Review
	result = params.Apply(s.db).Find(&reviews)
	if result.Error != nil {
		slog.Error("sql error listing reviews", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing reviews: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ReviewInfo, 0, len(reviews))
	for _, review := range reviews {
		infos = append(infos, convertToReviewInfo(&review))
	}

	utils.WriteListResponse(w, len(infos), params.Pagination(total), infos)
}

func (s *ReviewService) ListForBootcamp(w http.ResponseWriter, r *http.Request) {
	bootcampId, err := utils.URLParamUUID(r, "bootcamp_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := checkBootcampExists(s.db, bootcampId); err != nil {
		writeCodedError(w, err)
		return
	}

	var reviews []schema.Review
	result := s.db.Find(&reviews, "bootcamp_id = ?", bootcampId)
	if result.Error != nil {
		slog.Error("sql error listing bootcamp reviews", "bootcamp_id", bootcampId, "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing reviews: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ReviewInfo, 0, len(reviews))
	for _, review := range reviews {
		infos = append(infos, convertToReviewInfo(&review))
	}

	utils.WriteListResponse(w, len(infos), nil, infos)
}

func (s *ReviewService) Get(w http.ResponseWriter, r *http.Request) {
	reviewId, err := utils.URLParamUUID(r, "review_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	review, err := schema.GetReview(reviewId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrReviewNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToReviewInfo(&review))
}

type createReviewRequest struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

func (params *createReviewRequest) validate() error {
	if params.Title == "" {
		return errors.New("review title must be specified")
	}
	if params.Text == "" {
		return errors.New("review text must be specified")
	}
	return checkValidRating(params.Rating)
}

func (s *ReviewService) Create(w http.ResponseWriter, r *http.Request) {
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

	var params createReviewRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	review := schema.Review{
		Id:         uuid.New(),
		Title:      params.Title,
		Text:       params.Text,
		Rating:     params.Rating,
		CreatedAt:  time.Now().UTC(),
		BootcampId: bootcampId,
		UserId:     user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkBootcampExists(txn, bootcampId); err != nil {
			return err
		}

		var count int64
		result := txn.Model(&schema.Review{}).Where("bootcamp_id = ? AND user_id = ?", bootcampId, user.Id).Count(&count)
		if result.Error != nil {
			slog.Error("sql error checking for existing review", "bootcamp_id", bootcampId, "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if count != 0 {
			return CodedError(fmt.Errorf("user %v has already reviewed bootcamp %v", user.Id, bootcampId), http.StatusBadRequest)
		}

		result = txn.Create(&review)
		if result.Error != nil {
			slog.Error("sql error creating review", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return updateAverageRating(txn, bootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("review created", "review_id", review.Id, "bootcamp_id", bootcampId, "user_id", user.Id)

	utils.WriteCreatedResponse(w, convertToReviewInfo(&review))
}

type updateReviewRequest struct {
	Title  *string `json:"title"`
	Text   *string `json:"text"`
	Rating *int    `json:"rating"`
}

func (params *updateReviewRequest) apply(review *schema.Review) error {
	if params.Title != nil {
		review.Title = *params.Title
	}
	if params.Text != nil {
		review.Text = *params.Text
	}
	if params.Rating != nil {
		if err := checkValidRating(*params.Rating); err != nil {
			return err
		}
		review.Rating = *params.Rating
	}
	return nil
}

func (s *ReviewService) Update(w http.ResponseWriter, r *http.Request) {
	reviewId, err := utils.URLParamUUID(r, "review_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateReviewRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var updated schema.Review

	err = s.db.Transaction(func(txn *gorm.DB) error {
		review, err := schema.GetReview(reviewId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrReviewNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(review.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to update review %v", user.Id, reviewId), http.StatusForbidden)
		}

		if err := params.apply(&review); err != nil {
			return CodedError(err, http.StatusBadRequest)
		}

		result := txn.Save(&review)
		if result.Error != nil {
			slog.Error("sql error updating review", "review_id", reviewId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updated = review
		return updateAverageRating(txn, review.BootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	utils.WriteJsonResponse(w, convertToReviewInfo(&updated))
}

func (s *ReviewService) Delete(w http.ResponseWriter, r *http.Request) {
	reviewId, err := utils.URLParamUUID(r, "review_id")
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
		review, err := schema.GetReview(reviewId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrReviewNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !auth.CanMutate(review.UserId, user) {
			return CodedError(fmt.Errorf("user %v is not authorized to delete review %v", user.Id, reviewId), http.StatusForbidden)
		}

		result := txn.Delete(&review)
		if result.Error != nil {
			slog.Error("sql error deleting review", "review_id", reviewId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return updateAverageRating(txn, review.BootcampId)
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	slog.Info("review deleted", "review_id", reviewId, "user_id", user.Id)

	utils.WriteSuccess(w)
}

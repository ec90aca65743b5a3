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

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

var userAllowedFields = map[string]listField{
	"name":      {column: "name"},
	"email":     {column: "email"},
	"role":      {column: "role"},
	"createdAt": {column: "created_at", kind: fieldTime},
}

// AuthRoutes are the public account endpoints, mounted at /auth.
func (s *UserService) AuthRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", s.Register)
	r.Get("/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/me", s.Me)
	})

	return r
}

// Routes is the admin-gated user management api, mounted at /users. There is
// no ownership check on these endpoints, the admin gate covers everything.
func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)
	r.Use(auth.AdminOnly())

	r.Get("/", s.List)
	r.Post("/", s.Create)

	r.Get("/{user_id}", s.Get)
	r.Put("/{user_id}", s.Update)
	r.Delete("/{user_id}", s.Delete)

	return r
}

type UserInfo struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	return UserInfo{
		Id:        user.Id,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type registerResponse struct {
	UserId uuid.UUID `json:"userId"`
}

func (s *UserService) Register(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Role == "" {
		params.Role = schema.RoleUser
	}
	if params.Role == schema.RoleAdmin {
		utils.WriteError(w, "cannot register with the admin role", http.StatusBadRequest)
		return
	}

	userId, err := s.userAuth.CreateUser(params.Name, params.Email, params.Password, params.Role)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		utils.WriteError(w, fmt.Sprintf("error registering user: %v", err), responseCode)
		return
	}

	utils.WriteCreatedResponse(w, registerResponse{UserId: userId})
}

type loginResponse struct {
	UserId      uuid.UUID `json:"userId"`
	AccessToken string    `json:"accessToken"`
}

func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		utils.WriteError(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	login, err := s.userAuth.LoginWithEmail(email, password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrUserNotFoundWithEmail):
			responseCode = http.StatusNotFound
		case errors.Is(err, auth.ErrInvalidCredentials):
			responseCode = http.StatusUnauthorized
		}
		utils.WriteError(w, fmt.Sprintf("login failed: %v", err), responseCode)
		return
	}

	utils.WriteJsonResponse(w, loginResponse{UserId: login.UserId, AccessToken: login.AccessToken})
}

func (s *UserService) Me(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&user))
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), userAllowedFields)
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var total int64
	result := params.applyFilters(s.db.Model(&schema.User{})).Count(&total)
	if result.Error != nil {
		slog.Error("sql error counting users", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing users: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	var users []schema.User
	result = params.Apply(s.db).Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		utils.WriteError(w, fmt.Sprintf("error listing users: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, convertToUserInfo(&user))
	}

	utils.WriteListResponse(w, len(infos), params.Pagination(total), infos)
}

func (s *UserService) Get(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := schema.GetUser(userId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			utils.WriteError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.WriteError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&user))
}

func (s *UserService) Create(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Role == "" {
		params.Role = schema.RoleUser
	}

	userId, err := s.userAuth.CreateUser(params.Name, params.Email, params.Password, params.Role)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		utils.WriteError(w, fmt.Sprintf("error creating user: %v", err), responseCode)
		return
	}

	utils.WriteCreatedResponse(w, registerResponse{UserId: userId})
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (s *UserService) Update(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	var updated schema.User

	err = s.db.Transaction(func(txn *gorm.DB) error {
		user, err := schema.GetUser(userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrUserNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.Name != nil {
			user.Name = *params.Name
		}
		if params.Email != nil {
			user.Email = *params.Email
		}
		if params.Role != nil {
			if err := schema.CheckValidRole(*params.Role); err != nil {
				return CodedError(err, http.StatusBadRequest)
			}
			if user.IsAdmin() && *params.Role != schema.RoleAdmin {
				count, err := countAdmins(txn)
				if err != nil {
					return err
				}
				if count < 2 {
					return CodedError(fmt.Errorf("cannot demote admin %v since there would be no admins left", userId), http.StatusUnprocessableEntity)
				}
			}
			user.Role = *params.Role
		}

		result := txn.Save(&user)
		if result.Error != nil {
			slog.Error("sql error updating user", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updated = user
		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&updated))
}

func countAdmins(txn *gorm.DB) (int64, error) {
	var count int64
	result := txn.Model(&schema.User{}).Where("role = ?", schema.RoleAdmin).Count(&count)
	if result.Error != nil {
		slog.Error("sql error counting existing admins", "error", result.Error)
		return 0, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	return count, nil
}

func (s *UserService) Delete(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, userId); err != nil {
			return err
		}

		var admin schema.User
		adminResult := txn.Where("role = ? AND id <> ?", schema.RoleAdmin, userId).First(&admin)
		if adminResult.Error != nil {
			if errors.Is(adminResult.Error, gorm.ErrRecordNotFound) {
				return CodedError(fmt.Errorf("cannot delete user %v since there would be no admins left", userId), http.StatusUnprocessableEntity)
			}
			slog.Error("sql error finding admin to assign bootcamps to", "user_id", userId, "error", adminResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		// Listings survive their author: reassign them to an admin rather
		// than orphaning the rows.
		updateResult := txn.Model(&schema.Bootcamp{}).Where("user_id = ?", userId).Update("user_id", admin.Id)
		if updateResult.Error != nil {
			slog.Error("sql error reassigning bootcamps of deleted user", "user_id", userId, "error", updateResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		updateResult = txn.Model(&schema.Course{}).Where("user_id = ?", userId).Update("user_id", admin.Id)
		if updateResult.Error != nil {
			slog.Error("sql error reassigning courses of deleted user", "user_id", userId, "error", updateResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		var reviewed []uuid.UUID
		reviewResult := txn.Model(&schema.Review{}).Where("user_id = ?", userId).Distinct().Pluck("bootcamp_id", &reviewed)
		if reviewResult.Error != nil {
			slog.Error("sql error finding reviews of deleted user", "user_id", userId, "error", reviewResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		deleteResult := txn.Where("user_id = ?", userId).Delete(&schema.Review{})
		if deleteResult.Error != nil {
			slog.Error("sql error deleting reviews of deleted user", "user_id", userId, "error", deleteResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		for _, bootcampId := range reviewed {
			if err := updateAverageRating(txn, bootcampId); err != nil {
				return err
			}
		}

		deleteResult = txn.Delete(&schema.User{Id: userId})
		if deleteResult.Error != nil {
			slog.Error("sql error deleting user", "user_id", userId, "error", deleteResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeCodedError(w, err)
		return
	}

	err = s.userAuth.DeleteUser(userId)
	if err != nil {
		utils.WriteError(w, fmt.Sprintf("error deleting user %v: %v", userId, err), http.StatusInternalServerError)
		return
	}

	slog.Info("user deleted", "user_id", userId)

	utils.WriteSuccess(w)
}

package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrBootcampNotFound = errors.New("bootcamp not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrDbAccessFailed   = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetBootcamp(bootcampId uuid.UUID, db *gorm.DB) (Bootcamp, error) {
	var bootcamp Bootcamp

	result := db.First(&bootcamp, "id = ?", bootcampId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return bootcamp, ErrBootcampNotFound
		}
		slog.Error("sql error in get bootcamp", "bootcamp_id", bootcampId, "error", result.Error)
		return bootcamp, ErrDbAccessFailed
	}

	return bootcamp, nil
}

func GetCourse(courseId uuid.UUID, db *gorm.DB) (Course, error) {
	var course Course

	result := db.First(&course, "id = ?", courseId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return course, ErrCourseNotFound
		}
		slog.Error("sql error in get course", "course_id", courseId, "error", result.Error)
		return course, ErrDbAccessFailed
	}

	return course, nil
}

func GetReview(reviewId uuid.UUID, db *gorm.DB) (Review, error) {
	var review Review

	result := db.First(&review, "id = ?", reviewId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return review, ErrReviewNotFound
		}
		slog.Error("sql error in get review", "review_id", reviewId, "error", result.Error)
		return review, ErrDbAccessFailed
	}

	return review, nil
}

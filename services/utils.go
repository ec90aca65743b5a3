package services

import (
	"devcamp/schema"
	"devcamp/storage"
	"devcamp/utils"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkBootcampExists(txn *gorm.DB, bootcampId uuid.UUID) error {
	if _, err := schema.GetBootcamp(bootcampId, txn); err != nil {
		if errors.Is(err, schema.ErrBootcampNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

// updateAverageCost recomputes the denormalized average tuition on a bootcamp
// after a course mutation. The average is rounded up to the nearest ten to
// match the figure shown in listings. No courses clears the value.
func updateAverageCost(txn *gorm.DB, bootcampId uuid.UUID) error {
	var avg *float64
	result := txn.Model(&schema.Course{}).Where("bootcamp_id = ?", bootcampId).Select("AVG(tuition)").Scan(&avg)
	if result.Error != nil {
		slog.Error("sql error computing average tuition", "bootcamp_id", bootcampId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	if avg != nil {
		rounded := math.Ceil(*avg/10) * 10
		avg = &rounded
	}

	result = txn.Model(&schema.Bootcamp{Id: bootcampId}).Update("average_cost", avg)
	if result.Error != nil {
		slog.Error("sql error updating bootcamp average cost", "bootcamp_id", bootcampId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

func updateAverageRating(txn *gorm.DB, bootcampId uuid.UUID) error {
	var avg *float64
	result := txn.Model(&schema.Review{}).Where("bootcamp_id = ?", bootcampId).Select("AVG(rating)").Scan(&avg)
	if result.Error != nil {
		slog.Error("sql error computing average rating", "bootcamp_id", bootcampId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	result = txn.Model(&schema.Bootcamp{Id: bootcampId}).Update("average_rating", avg)
	if result.Error != nil {
		slog.Error("sql error updating bootcamp average rating", "bootcamp_id", bootcampId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

func checkDiskUsage(store storage.Storage) error {
	stats, err := store.Usage()
	if err != nil {
		slog.Error("unable to get disk usage from storage", "error", err)
		return CodedError(errors.New("unable to get disk usage"), http.StatusInternalServerError)
	}
	oneMib := uint64(1024 * 1024)
	// Either 5% of the disk or 1Gb needs to be free, whichever is smaller.
	threshold := min(stats.TotalBytes/20, 1024*oneMib)
	if stats.FreeBytes < threshold {
		used := (stats.TotalBytes - stats.FreeBytes) / oneMib
		total := stats.TotalBytes / oneMib
		return CodedError(fmt.Errorf("insufficient disk space available for upload, usage: %d/%d Mib", used, total), http.StatusInsufficientStorage)
	}
	return nil
}

func writeCodedError(w http.ResponseWriter, err error) {
	utils.WriteError(w, err.Error(), GetResponseCode(err))
}

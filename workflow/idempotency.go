package workflow

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bizcheckau/reports_backend/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrIdempotencyInProgress = errors.New("idempotency in progress")
	// ErrIdempotencyKeyReused means the key already belongs to another user.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used")
)

const staleIdempotencyAfter = 5 * time.Minute

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, it returns that row so
// the caller can replay the stored result.
func BeginIdempotency(tx *gorm.DB, scope, key string, userId uint) (*models.IdempotencyKey, error) {
	row := models.IdempotencyKey{
		Scope:   scope,
		IdemKey: key,
		UserId:  userId,
		Status:  models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&row).Error; err == nil {
		return nil, nil
	} else if !models.IsDuplicateKeyError(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("scope = ? AND idem_key = ?", scope, key).First(&existing).Error; err != nil {
		return nil, err
	}
	if existing.UserId != userId {
		return nil, ErrIdempotencyKeyReused
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return &existing, nil
	case models.IdempotencyStatusStarted:
		// Another request is running it; a stale row is taken over.
		if time.Since(existing.UpdatedAt) < staleIdempotencyAfter {
			return nil, ErrIdempotencyInProgress
		}
	}
	return nil, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, scope, key string, result interface{}) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND idem_key = ?", scope, key).
		Updates(map[string]interface{}{
			"status":      models.IdempotencyStatusSucceeded,
			"result_json": datatypes.JSON(resultJSON),
			"last_error":  nil,
		}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, scope, key string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND idem_key = ?", scope, key).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

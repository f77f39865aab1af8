package models

import (
	"time"

	"gorm.io/datatypes"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey provides durable, DB-backed idempotency for report creation.
// Unique constraint: (scope, idem_key).
type IdempotencyKey struct {
	ID         uint              `gorm:"primary_key" json:"id"`
	Scope      string            `gorm:"size:100;not null;uniqueIndex:uniq_idem,priority:1" json:"scope"`
	IdemKey    string            `gorm:"size:255;not null;uniqueIndex:uniq_idem,priority:2" json:"idem_key"`
	UserId     uint              `gorm:"index" json:"user_id"`
	Status     IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResultJSON datatypes.JSON    `json:"result"`
	LastError  *string           `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

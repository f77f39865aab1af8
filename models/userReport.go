package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bizcheckau/reports_backend/utils"
	"gorm.io/gorm"
)

// Matter groups a user's reports (a client file, a deal, a court matter).
type Matter struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserId    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMatter struct {
	Name string `json:"name" binding:"required,max=255"`
}

// UserReport links a report to a user, optionally within a matter.
// Unique constraint: (user_id, matter_id, report_id).
type UserReport struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	UserId      uint      `gorm:"not null;uniqueIndex:uniq_user_report,priority:1" json:"user_id"`
	MatterId    *uint     `gorm:"uniqueIndex:uniq_user_report,priority:2" json:"matter_id"`
	ReportId    uint      `gorm:"not null;uniqueIndex:uniq_user_report,priority:3;index" json:"report_id"`
	Report      *Report   `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"report,omitempty"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	IsPaid      *bool     `gorm:"not null;default:true" json:"is_paid"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrMatterNotOwned = errors.New("matter does not belong to user")

func CreateMatter(ctx context.Context, db *gorm.DB, userId uint, input NewMatter) (*Matter, error) {
	matter := Matter{UserId: userId, Name: strings.TrimSpace(input.Name)}
	if err := db.WithContext(ctx).Create(&matter).Error; err != nil {
		return nil, err
	}
	return &matter, nil
}

func ListMatters(ctx context.Context, db *gorm.DB, userId uint) ([]*Matter, error) {
	var matters []*Matter
	err := db.WithContext(ctx).Where("user_id = ?", userId).Order("created_at DESC").Find(&matters).Error
	return matters, err
}

// CheckMatterOwner returns ErrMatterNotOwned unless matterId is nil or owned by userId.
func CheckMatterOwner(ctx context.Context, db *gorm.DB, userId uint, matterId *uint) error {
	if matterId == nil {
		return nil
	}
	var count int64
	if err := db.WithContext(ctx).Model(&Matter{}).
		Where("id = ? AND user_id = ?", *matterId, userId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrMatterNotOwned
	}
	return nil
}

// LinkReport inserts the (user, matter, report) linkage unless it exists.
// It reports whether a row was created; an existing row is not an error.
func LinkReport(ctx context.Context, db *gorm.DB, userId uint, matterId *uint, reportId uint, displayName string) (bool, error) {
	exists, err := userReportExists(ctx, db, userId, matterId, reportId)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	link := UserReport{
		UserId:      userId,
		MatterId:    matterId,
		ReportId:    reportId,
		DisplayName: displayName,
		IsPaid:      utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&link).Error; err != nil {
		// a concurrent call won the unique index
		if IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func userReportExists(ctx context.Context, db *gorm.DB, userId uint, matterId *uint, reportId uint) (bool, error) {
	dbCtx := db.WithContext(ctx).Model(&UserReport{}).Where("user_id = ? AND report_id = ?", userId, reportId)
	if matterId == nil {
		dbCtx = dbCtx.Where("matter_id IS NULL")
	} else {
		dbCtx = dbCtx.Where("matter_id = ?", *matterId)
	}
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUserReports returns a user's linkages newest first, optionally filtered by matter.
func ListUserReports(ctx context.Context, db *gorm.DB, userId uint, matterId *uint) ([]*UserReport, error) {
	dbCtx := db.WithContext(ctx).Preload("Report").Where("user_id = ?", userId)
	if matterId != nil {
		dbCtx = dbCtx.Where("matter_id = ?", *matterId)
	}
	var links []*UserReport
	err := dbCtx.Order("created_at DESC").Order("id DESC").Find(&links).Error
	return links, err
}

// UserOwnsReport reports whether any linkage exists between the user and the report.
func UserOwnsReport(ctx context.Context, db *gorm.DB, userId uint, reportId uint) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&UserReport{}).
		Where("user_id = ? AND report_id = ?", userId, reportId).Count(&count).Error
	return count > 0, err
}

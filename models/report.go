package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/utils"
	"gorm.io/gorm"
)

// Report is one purchased report instance. Business columns never change after
// creation; RawPayloadRef and IngestedAt are bookkeeping set by the pipeline.
type Report struct {
	ID             uint           `gorm:"primary_key" json:"id"`
	Uuid           string         `gorm:"size:64;index" json:"uuid"`
	Abn            string         `gorm:"size:20;not null;index:idx_report_lookup,priority:1" json:"abn"`
	Category       string         `gorm:"size:50;not null;index:idx_report_lookup,priority:2" json:"category"`
	Subtype        *string        `gorm:"size:50;index:idx_report_lookup,priority:3" json:"subtype"`
	RequestedType  string         `gorm:"size:100" json:"requested_type"`
	UpstreamStatus string         `gorm:"size:50" json:"upstream_status"`
	UserId         uint           `gorm:"index;not null" json:"user_id"`
	RawPayloadRef  *string        `gorm:"size:255" json:"raw_payload_ref"`
	IngestedAt     *time.Time     `json:"ingested_at"`
	Entity         *Entity        `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"entity,omitempty"`
	AsicExtracts   []*AsicExtract `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"asic_extracts,omitempty"`
	Cases          []*Case        `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"cases,omitempty"`
	Insolvencies   []*Insolvency  `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"insolvencies,omitempty"`
	TaxDebt        *TaxDebt       `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"tax_debt,omitempty"`
	PpsrSearches   []*PpsrSearch  `gorm:"foreignKey:ReportId;constraint:OnDelete:CASCADE" json:"ppsr_searches,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index:idx_report_lookup,priority:4" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReportKey is the cache identity of a report: ABN plus its classification.
type ReportKey struct {
	Abn      string
	Category string
	Subtype  string
}

func (k ReportKey) SubtypePtr() *string {
	if k.Subtype == "" {
		return nil
	}
	s := k.Subtype
	return &s
}

func (k ReportKey) redisKey() string {
	return fmt.Sprintf("ReportLookup:%s:%s:%s", k.Abn, strings.ReplaceAll(k.Category, " ", "_"), k.Subtype)
}

// LockKey names the lock that serializes creation of reports with this key.
func (k ReportKey) LockKey() string {
	return fmt.Sprintf("lock:report:%s:%s:%s", k.Abn, strings.ReplaceAll(k.Category, " ", "_"), k.Subtype)
}

func (r Report) Key() ReportKey {
	return ReportKey{Abn: r.Abn, Category: r.Category, Subtype: utils.DereferencePtr(r.Subtype)}
}

func (r Report) IsIngested() bool {
	return r.IngestedAt != nil
}

type reportMemo struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// FindFreshReport returns the newest report for key created at or after since.
// A miss returns (nil, nil).
func FindFreshReport(ctx context.Context, db *gorm.DB, key ReportKey, since time.Time) (*Report, error) {
	var memo reportMemo
	if ok, err := config.GetRedisObject(key.redisKey(), &memo); err == nil && ok && memo.ID > 0 && !memo.CreatedAt.Before(since) {
		var report Report
		if err := db.WithContext(ctx).First(&report, memo.ID).Error; err == nil {
			return &report, nil
		}
	}

	dbCtx := db.WithContext(ctx).
		Where("abn = ? AND category = ? AND created_at >= ?", key.Abn, key.Category, since)
	if key.Subtype == "" {
		dbCtx = dbCtx.Where("subtype IS NULL")
	} else {
		dbCtx = dbCtx.Where("subtype = ?", key.Subtype)
	}

	var report Report
	err := dbCtx.Order("created_at DESC").Order("id DESC").First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if remaining := time.Until(report.CreatedAt.Add(config.ReportFreshnessWindow())); remaining > 0 {
		// memo is best-effort; the query above stays authoritative
		_ = config.SetRedisObject(key.redisKey(), reportMemo{ID: report.ID, CreatedAt: report.CreatedAt}, remaining)
	}
	return &report, nil
}

func CreateReport(ctx context.Context, db *gorm.DB, report *Report) error {
	if err := db.WithContext(ctx).Create(report).Error; err != nil {
		return err
	}
	_ = config.RemoveRedisKey(report.Key().redisKey())
	return nil
}

// GetReport loads a report with optional preloads (may return utils.ErrorRecordNotFound).
func GetReport(ctx context.Context, db *gorm.DB, id uint, associations ...string) (*Report, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var report Report
	if err := dbCtx.First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &report, nil
}

func SetRawPayloadRef(ctx context.Context, db *gorm.DB, reportId uint, ref string) error {
	return db.WithContext(ctx).Model(&Report{}).Where("id = ?", reportId).
		UpdateColumn("raw_payload_ref", ref).Error
}

func MarkReportIngested(ctx context.Context, db *gorm.DB, reportId uint, at time.Time) error {
	return db.WithContext(ctx).Model(&Report{}).Where("id = ? AND ingested_at IS NULL", reportId).
		UpdateColumn("ingested_at", at).Error
}

// ReportDetailAssociations preloads the full normalized tree of a report.
var ReportDetailAssociations = []string{
	"Entity",
	"AsicExtracts.Addresses", "AsicExtracts.Directors", "AsicExtracts.Shareholders",
	"AsicExtracts.ShareStructures", "AsicExtracts.Documents",
	"Cases.Parties", "Cases.Hearings", "Cases.Documents", "Cases.Applications", "Cases.Judgments",
	"Insolvencies.Parties",
	"TaxDebt",
	"PpsrSearches.Items.AddressForService", "PpsrSearches.Items.Grantors", "PpsrSearches.Items.SecuredParties",
}

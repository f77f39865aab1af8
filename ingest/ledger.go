package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bizcheckau/reports_backend/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxErrorPayload caps the aggregate JSON copied into an ingestion error.
const maxErrorPayload = 64 << 10

// Stats counts stored rows per table for one run.
type Stats map[string]int

func (s Stats) Add(key string, n int) {
	if n > 0 {
		s[key] += n
	}
}

func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

func startRun(ctx context.Context, db *gorm.DB, run *models.IngestionRun) error {
	now := time.Now()
	run.Status = models.IngestionStatusRunning
	run.StartedAt = &now
	return db.WithContext(ctx).Create(run).Error
}

func finishRun(ctx context.Context, db *gorm.DB, run *models.IngestionRun, status models.IngestionStatus, stats Stats, errorCount int) error {
	finishedAt := time.Now()
	var durationMs int64
	if run.StartedAt != nil {
		durationMs = finishedAt.Sub(*run.StartedAt).Milliseconds()
	}
	statsJSON, _ := json.Marshal(stats)

	run.Status = status
	run.FinishedAt = &finishedAt
	run.DurationMs = durationMs
	run.RecordsStored = stats.Total()
	run.ErrorCount = errorCount
	run.StatsJSON = datatypes.JSON(statsJSON)

	return db.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"status":         status,
		"finished_at":    finishedAt,
		"duration_ms":    durationMs,
		"records_stored": run.RecordsStored,
		"error_count":    errorCount,
		"stats_json":     run.StatsJSON,
	}).Error
}

func createIngestionError(ctx context.Context, db *gorm.DB, run *models.IngestionRun, aggregate models.AggregateType, sourceId string, message string, raw []byte) error {
	errRec := models.IngestionError{
		IngestionRunId: run.ID,
		ReportId:       run.ReportId,
		AggregateType:  aggregate,
		SourceId:       sourceId,
		Message:        message,
	}
	if len(raw) > 0 && len(raw) <= maxErrorPayload && json.Valid(raw) {
		errRec.PayloadJSON = datatypes.JSON(raw)
	}
	return db.WithContext(ctx).Create(&errRec).Error
}

// ListRuns returns the ingestion runs of a report, newest first.
func ListRuns(ctx context.Context, db *gorm.DB, reportId uint) ([]*models.IngestionRun, error) {
	var runs []*models.IngestionRun
	err := db.WithContext(ctx).Where("report_id = ?", reportId).Order("id DESC").Find(&runs).Error
	return runs, err
}

// ListErrors returns the aggregate failures recorded for a report.
func ListErrors(ctx context.Context, db *gorm.DB, reportId uint) ([]*models.IngestionError, error) {
	var errs []*models.IngestionError
	err := db.WithContext(ctx).Where("report_id = ?", reportId).Order("id ASC").Find(&errs).Error
	return errs, err
}

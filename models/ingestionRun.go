package models

import (
	"time"

	"gorm.io/datatypes"
)

// IngestionRun records one attempt to normalize a report payload.
type IngestionRun struct {
	ID            uint            `gorm:"primary_key" json:"id"`
	RunId         string          `gorm:"size:64;uniqueIndex;not null" json:"run_id"`
	ReportId      uint            `gorm:"index;not null" json:"report_id"`
	Status        IngestionStatus `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string          `gorm:"size:20" json:"triggered_by"`
	PayloadKind   string          `gorm:"size:20" json:"payload_kind"`
	CorrelationId string          `gorm:"size:64" json:"correlation_id"`
	StatsJSON     datatypes.JSON  `json:"stats"`
	RecordsStored int             `json:"records_stored"`
	ErrorCount    int             `json:"error_count"`
	StartedAt     *time.Time      `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at"`
	DurationMs    int64           `json:"duration_ms"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IngestionError is one aggregate that failed and was skipped during a run.
type IngestionError struct {
	ID             uint           `gorm:"primary_key" json:"id"`
	IngestionRunId uint           `gorm:"index;not null" json:"ingestion_run_id"`
	ReportId       uint           `gorm:"index;not null" json:"report_id"`
	AggregateType  AggregateType  `gorm:"size:50" json:"aggregate_type"`
	SourceId       string         `gorm:"size:128" json:"source_id"`
	Message        string         `gorm:"type:text" json:"message"`
	PayloadJSON    datatypes.JSON `json:"payload"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

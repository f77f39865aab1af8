// Package ingest turns a raw upstream report document into relational rows.
// Sibling aggregates (extracts, cases, insolvencies, PPSR searches) fail
// independently; singletons (entity, tax debt) fail the run.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/payload"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const defaultLockTTL = 5 * time.Minute

type Ingester struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	// Locker is optional; without it the unique indexes are the only guard
	// against two concurrent runs for one report.
	Locker  Locker
	LockTTL time.Duration
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Options describe why a run happened; they only feed the ledger.
type Options struct {
	TriggeredBy   string
	CorrelationId string
}

// AggregateError is one sibling aggregate that was skipped.
type AggregateError struct {
	Aggregate models.AggregateType
	SourceId  string
	Err       error
}

func (e AggregateError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Aggregate, e.SourceId, e.Err)
}

type Outcome struct {
	Skipped    bool
	SkipReason string
	Kind       payload.Kind
	Status     models.IngestionStatus
	Run        *models.IngestionRun
	Stats      Stats
	Failures   []AggregateError
}

const (
	SkipAlreadyIngested = "already_ingested"
	SkipLocked          = "locked"
)

func NewIngester(db *gorm.DB) *Ingester {
	return &Ingester{
		DB:     db,
		Logger: config.GetLogger(),
		Locker: RedisLocker{Client: config.GetRedisLock()},
		Tracer: otel.Tracer("reports-backend/ingest"),
	}
}

func (in *Ingester) logger() *logrus.Logger {
	if in.Logger != nil {
		return in.Logger
	}
	return config.GetLogger()
}

func (in *Ingester) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

func (in *Ingester) gateway() *Gateway {
	return &Gateway{DB: in.DB}
}

// Ingest stores raw under reportId unless the report is already ingested.
func (in *Ingester) Ingest(ctx context.Context, reportId uint, raw []byte) (*Outcome, error) {
	return in.IngestWith(ctx, reportId, raw, Options{})
}

func (in *Ingester) IngestWith(ctx context.Context, reportId uint, raw []byte, opts Options) (*Outcome, error) {
	tracer := in.Tracer
	if tracer == nil {
		tracer = otel.Tracer("reports-backend/ingest")
	}
	ctx, span := tracer.Start(ctx, "ingest.Ingest", trace.WithAttributes(attribute.Int64("report.id", int64(reportId))))
	defer span.End()

	outcome, err := in.ingest(ctx, reportId, raw, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Bool("ingest.skipped", outcome.Skipped),
		attribute.String("ingest.status", string(outcome.Status)),
	)
	return outcome, nil
}

func (in *Ingester) ingest(ctx context.Context, reportId uint, raw []byte, opts Options) (*Outcome, error) {
	log := in.logger().WithFields(logrus.Fields{
		"report_id":      reportId,
		"correlation_id": opts.CorrelationId,
	})

	if in.Locker != nil {
		ttl := in.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		lock, err := in.Locker.Obtain(ctx, lockKey(reportId), ttl)
		switch {
		case errors.Is(err, ErrLockHeld):
			log.Info("ingestion skipped: another run holds the report lock")
			return &Outcome{Skipped: true, SkipReason: SkipLocked, Status: models.IngestionStatusSkipped}, nil
		case err != nil:
			log.Warnf("ingestion lock unavailable, continuing without it: %v", err)
		case lock != nil:
			defer func() {
				_ = lock.Release(context.WithoutCancel(ctx))
			}()
		}
	}

	gw := in.gateway()
	done, err := gw.AlreadyIngested(ctx, reportId)
	if err != nil {
		return nil, fmt.Errorf("ingestion guard: %w", err)
	}
	if done {
		log.Info("ingestion skipped: report already ingested")
		run := &models.IngestionRun{
			RunId:         uuid.NewString(),
			ReportId:      reportId,
			Status:        models.IngestionStatusSkipped,
			TriggeredBy:   triggeredBy(opts),
			CorrelationId: opts.CorrelationId,
		}
		if err := in.DB.WithContext(ctx).Create(run).Error; err != nil {
			log.Warnf("record skipped ingestion run: %v", err)
		}
		return &Outcome{Skipped: true, SkipReason: SkipAlreadyIngested, Status: models.IngestionStatusSkipped, Run: run}, nil
	}

	doc, err := payload.Decode(raw)
	if err != nil {
		return nil, err
	}

	run := &models.IngestionRun{
		RunId:         uuid.NewString(),
		ReportId:      reportId,
		TriggeredBy:   triggeredBy(opts),
		PayloadKind:   string(doc.Kind),
		CorrelationId: opts.CorrelationId,
	}
	if err := startRun(ctx, in.DB, run); err != nil {
		return nil, err
	}

	outcome := &Outcome{Kind: doc.Kind, Run: run, Stats: Stats{}}
	w := &runWriter{ctx: ctx, gw: gw, db: in.DB, run: run, outcome: outcome, log: log}

	switch doc.Kind {
	case payload.KindPPSR:
		w.ppsr(reportId, doc.PPSR)
	default:
		err = w.standard(reportId, doc.Standard)
	}

	if err != nil {
		outcome.Status = models.IngestionStatusFailed
		if ferr := finishRun(ctx, in.DB, run, outcome.Status, outcome.Stats, len(outcome.Failures)+1); ferr != nil {
			log.Errorf("finish ingestion run: %v", ferr)
		}
		config.LogError(in.logger(), "ingest", "Ingest", "singleton aggregate failed", reportId, err)
		return nil, err
	}

	outcome.Status = models.IngestionStatusSuccess
	if n := len(outcome.Failures); n > 0 {
		outcome.Status = models.IngestionStatusPartial
		if outcome.Stats.Total() == 0 {
			outcome.Status = models.IngestionStatusFailed
		}
	}
	// a run that stored nothing stays retryable
	if outcome.Status != models.IngestionStatusFailed {
		if err := models.MarkReportIngested(ctx, in.DB, reportId, in.now()); err != nil {
			return nil, err
		}
	}
	if err := finishRun(ctx, in.DB, run, outcome.Status, outcome.Stats, len(outcome.Failures)); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"status":  outcome.Status,
		"records": outcome.Stats.Total(),
		"errors":  len(outcome.Failures),
	}).Info("report ingested")
	return outcome, nil
}

func triggeredBy(opts Options) string {
	if opts.TriggeredBy == "" {
		return models.IngestTriggeredCreate
	}
	return opts.TriggeredBy
}

// runWriter carries one run's state through the aggregate steps.
type runWriter struct {
	ctx     context.Context
	gw      *Gateway
	db      *gorm.DB
	run     *models.IngestionRun
	outcome *Outcome
	log     *logrus.Entry
}

// isolate records a sibling failure and lets the run continue.
func (w *runWriter) isolate(aggregate models.AggregateType, sourceId string, raw []byte, err error) {
	w.outcome.Failures = append(w.outcome.Failures, AggregateError{Aggregate: aggregate, SourceId: sourceId, Err: err})
	w.log.WithFields(logrus.Fields{
		"aggregate": aggregate,
		"source_id": sourceId,
	}).Errorf("aggregate ingest failed: %v", err)
	if rerr := createIngestionError(w.ctx, w.db, w.run, aggregate, sourceId, err.Error(), raw); rerr != nil {
		w.log.Errorf("record ingestion error: %v", rerr)
	}
}

// stored handles a unique-index hit as a row some other run already wrote.
func (w *runWriter) stored(aggregate models.AggregateType, sourceId string, err error) bool {
	if !models.IsDuplicateKeyError(err) {
		return false
	}
	w.log.WithFields(logrus.Fields{
		"aggregate": aggregate,
		"source_id": sourceId,
	}).Info("aggregate already stored")
	return true
}

func (w *runWriter) standard(reportId uint, doc *payload.StandardReportPayload) error {
	stats := w.outcome.Stats

	entityRec, err := payload.DecodeAs[payload.EntityRecord](doc.Entity)
	if err != nil {
		return fmt.Errorf("decode entity: %w", err)
	}
	if entityRec != nil {
		entity, err := normalizeEntity(reportId, entityRec)
		if err != nil {
			return fmt.Errorf("normalize entity: %w", err)
		}
		if err := w.gw.SaveEntity(w.ctx, entity); err != nil {
			if !w.stored(models.AggregateEntity, "", err) {
				return fmt.Errorf("save entity: %w", err)
			}
		} else {
			stats.Add("entities", 1)
		}
	}

	for i, raw := range doc.AsicExtracts {
		uid := payload.PositionalKey(i)
		if id := payload.IdOf(raw); id != "" {
			uid = id
		}
		rec, err := payload.DecodeAs[payload.AsicExtractRecord](raw)
		if err == nil && rec == nil {
			continue
		}
		if err != nil {
			w.isolate(models.AggregateAsicExtract, uid, raw, err)
			continue
		}
		agg := normalizeAsicExtract(reportId, uid, rec)
		if err := w.gw.SaveAsicExtract(w.ctx, agg); err != nil {
			if !w.stored(models.AggregateAsicExtract, uid, err) {
				w.isolate(models.AggregateAsicExtract, uid, raw, err)
			}
			continue
		}
		stats.Add("asic_extracts", 1)
		stats.Add("addresses", len(agg.Addresses))
		stats.Add("directors", len(agg.Directors))
		stats.Add("shareholders", len(agg.Shareholders))
		stats.Add("share_structures", len(agg.ShareStructures))
		stats.Add("asic_documents", len(agg.Documents))
	}

	for _, entry := range doc.Cases {
		rec, err := payload.DecodeAs[payload.CaseRecord](entry.Value)
		if err == nil && rec == nil {
			continue
		}
		if err != nil {
			w.isolate(models.AggregateCase, entry.Key, entry.Value, err)
			continue
		}
		agg := normalizeCase(reportId, entry.Key, rec)
		if err := w.gw.SaveCase(w.ctx, agg); err != nil {
			if !w.stored(models.AggregateCase, entry.Key, err) {
				w.isolate(models.AggregateCase, entry.Key, entry.Value, err)
			}
			continue
		}
		stats.Add("cases", 1)
		stats.Add("case_parties", len(agg.Parties))
		stats.Add("case_hearings", len(agg.Hearings))
		stats.Add("case_documents", len(agg.Documents))
		stats.Add("case_applications", len(agg.Applications))
		stats.Add("case_judgments", len(agg.Judgments))
	}

	for _, entry := range doc.Insolvencies {
		rec, err := payload.DecodeAs[payload.InsolvencyRecord](entry.Value)
		if err == nil && rec == nil {
			continue
		}
		if err != nil {
			w.isolate(models.AggregateInsolvency, entry.Key, entry.Value, err)
			continue
		}
		agg := normalizeInsolvency(reportId, entry.Key, rec)
		if err := w.gw.SaveInsolvency(w.ctx, agg); err != nil {
			if !w.stored(models.AggregateInsolvency, entry.Key, err) {
				w.isolate(models.AggregateInsolvency, entry.Key, entry.Value, err)
			}
			continue
		}
		stats.Add("insolvencies", 1)
		stats.Add("insolvency_parties", len(agg.Parties))
	}

	debtRec, err := payload.DecodeAs[payload.TaxDebtRecord](doc.CurrentTaxDebt)
	if err != nil {
		return fmt.Errorf("decode tax debt: %w", err)
	}
	if debtRec != nil {
		if err := w.gw.SaveTaxDebt(w.ctx, normalizeTaxDebt(reportId, debtRec)); err != nil {
			if !w.stored(models.AggregateTaxDebt, "", err) {
				return fmt.Errorf("save tax debt: %w", err)
			}
		} else {
			stats.Add("tax_debts", 1)
		}
	}
	return nil
}

func (w *runWriter) ppsr(reportId uint, doc *payload.PpsrReportPayload) {
	stats := w.outcome.Stats
	for i, group := range doc.Groups() {
		sourceId := group.Summary.SearchNumber.String()
		if sourceId == "" {
			sourceId = "search-" + strconv.Itoa(i)
		}
		agg := normalizePpsrSearch(reportId, i, doc.PpsrCloudId, group)
		if err := w.gw.SavePpsrSearch(w.ctx, agg); err != nil {
			if !w.stored(models.AggregatePpsrSearch, sourceId, err) {
				w.isolate(models.AggregatePpsrSearch, sourceId, group.Summary.Raw, err)
			}
			continue
		}
		stats.Add("ppsr_searches", 1)
		for _, item := range agg.Items {
			stats.Add("ppsr_items", 1)
			if item.AddressForService != nil {
				stats.Add("address_for_services", 1)
			}
			stats.Add("ppsr_grantors", len(item.Grantors))
			stats.Add("ppsr_secured_parties", len(item.SecuredParties))
		}
	}
}

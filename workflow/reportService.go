// Package workflow runs report creation end to end: classify, reuse a fresh
// report or fetch a new one, ingest it and link it to the purchasing user.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizcheckau/reports_backend/alares"
	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/ingest"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/reporttype"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	idempotencyScopeCreate = "report.create"
	statusCached           = "cached"
)

var (
	ErrUnsupportedType = errors.New("unsupported report type")
	ErrInvalidAbn      = errors.New("abn is required")
	// ErrReportTimeout is retryable: nothing partial was linked to the user.
	ErrReportTimeout = errors.New("report creation timed out")
)

// ReportFetcher produces upstream report documents.
type ReportFetcher interface {
	CreateAndFetch(ctx context.Context, abn string, class reporttype.Classification) (*alares.Result, error)
	Refetch(ctx context.Context, uuid string) ([]byte, error)
}

type ReportIngester interface {
	IngestWith(ctx context.Context, reportId uint, raw []byte, opts ingest.Options) (*ingest.Outcome, error)
}

type ReportService struct {
	DB       *gorm.DB
	Fetcher  ReportFetcher
	Ingester ReportIngester
	// RawStore and Publisher are optional.
	RawStore  RawStore
	Publisher Publisher
	Logger    *logrus.Logger
	Tracer    trace.Tracer
	Now       func() time.Time
	// Timeout bounds one CreateReport call; zero means the configured default.
	Timeout         time.Duration
	FreshnessWindow time.Duration
	// Locker serializes creation per report key; nil means in-process only.
	Locker ingest.Locker
}

var processLocker = ingest.NewLocalLocker()

type CreateReportInput struct {
	UserId      uint   `json:"-"`
	MatterId    *uint  `json:"matterId"`
	Abn         string `json:"abn" binding:"required"`
	Type        string `json:"type" binding:"required"`
	DisplayName string `json:"displayName" binding:"max=255"`
	// PaymentRef is the payment intent id; it makes creation idempotent.
	PaymentRef string `json:"paymentRef" binding:"max=255"`
}

type CreateReportResult struct {
	Success   bool   `json:"success"`
	ReportId  uint   `json:"reportId"`
	Uuid      string `json:"uuid"`
	Status    string `json:"status"`
	FromCache bool   `json:"fromCache"`
	Type      string `json:"type"`
}

// NewReportService wires the production collaborators from the environment.
func NewReportService(db *gorm.DB) (*ReportService, error) {
	fetcher, err := alares.NewFetcherFromEnv()
	if err != nil {
		return nil, err
	}
	s := &ReportService{
		DB:       db,
		Fetcher:  fetcher,
		Ingester: ingest.NewIngester(db),
		Logger:   config.GetLogger(),
		Tracer:   otel.Tracer("reports-backend/workflow"),
	}
	if client := config.GetRedisLock(); client != nil {
		s.Locker = ingest.RedisLocker{Client: client, Retry: redislock.LinearBackoff(250 * time.Millisecond)}
	}
	if bucket := config.RawPayloadBucket(); bucket != "" {
		s.RawStore = GCSRawStore{Bucket: bucket}
	}
	if config.ReportReadyTopic() != "" {
		s.Publisher = PubSubPublisher{}
	}
	return s, nil
}

func (s *ReportService) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return config.GetLogger()
}

func (s *ReportService) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer("reports-backend/workflow")
}

func (s *ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ReportService) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return config.ReportCreateTimeout()
}

func (s *ReportService) freshness() time.Duration {
	if s.FreshnessWindow > 0 {
		return s.FreshnessWindow
	}
	return config.ReportFreshnessWindow()
}

// CreateReport returns a report for the requested ABN and type, linked to the
// user. With a payment reference, a repeated call replays the first result.
func (s *ReportService) CreateReport(ctx context.Context, input CreateReportInput) (*CreateReportResult, error) {
	input.Abn = normalizeAbn(input.Abn)
	if input.Abn == "" {
		return nil, ErrInvalidAbn
	}
	if input.PaymentRef == "" {
		return s.create(ctx, input)
	}

	done, err := BeginIdempotency(s.DB.WithContext(ctx), idempotencyScopeCreate, input.PaymentRef, input.UserId)
	if err != nil {
		return nil, err
	}
	if done != nil {
		var replay CreateReportResult
		if err := json.Unmarshal(done.ResultJSON, &replay); err == nil {
			s.logger().WithFields(logrus.Fields{
				"payment_ref": input.PaymentRef,
				"report_id":   replay.ReportId,
			}).Info("report creation replayed")
			return &replay, nil
		}
	}

	result, err := s.create(ctx, input)
	// the marker outlives the request deadline
	markCtx := context.WithoutCancel(ctx)
	if err != nil {
		if merr := MarkIdempotencyFailed(s.DB.WithContext(markCtx), idempotencyScopeCreate, input.PaymentRef, err); merr != nil {
			s.logger().Errorf("mark idempotency failed: %v", merr)
		}
		return nil, err
	}
	if merr := MarkIdempotencySucceeded(s.DB.WithContext(markCtx), idempotencyScopeCreate, input.PaymentRef, result); merr != nil {
		s.logger().Errorf("mark idempotency succeeded: %v", merr)
	}
	return result, nil
}

func (s *ReportService) create(ctx context.Context, input CreateReportInput) (*CreateReportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
	}

	class := reporttype.Classify(input.Type)
	ctx, span := s.tracer().Start(ctx, "workflow.CreateReport", trace.WithAttributes(
		attribute.String("report.abn", input.Abn),
		attribute.String("report.type", class.String()),
	))
	defer span.End()

	log := s.logger().WithFields(logrus.Fields{
		"abn":            input.Abn,
		"user_id":        input.UserId,
		"requested_type": input.Type,
		"correlation_id": correlationId,
	})

	result, err := s.run(ctx, input, class, correlationId, log)
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrReportTimeout, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("report creation failed: %v", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("report.id", int64(result.ReportId)),
		attribute.Bool("report.from_cache", result.FromCache),
	)
	return result, nil
}

func (s *ReportService) run(ctx context.Context, input CreateReportInput, class reporttype.Classification, correlationId string, log *logrus.Entry) (*CreateReportResult, error) {
	if class.Fallback {
		log.Warnf("report type %q not recognised, using %q", input.Type, class.Category)
	}
	if !class.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, input.Type)
	}
	if err := models.CheckMatterOwner(ctx, s.DB, input.UserId, input.MatterId); err != nil {
		return nil, err
	}

	key := models.ReportKey{Abn: input.Abn, Category: class.Category, Subtype: class.Subtype}
	unlock, err := s.lockReport(ctx, key, log)
	if err != nil {
		return nil, err
	}
	result := &CreateReportResult{Success: true, Type: class.String()}
	report, outcome, err := s.resolve(ctx, input, class, key, result, correlationId, log)
	unlock()
	if err != nil {
		return nil, err
	}
	log = log.WithField("report_id", report.ID)
	result.ReportId = report.ID
	result.Uuid = report.Uuid

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = input.Abn
	}
	created, err := models.LinkReport(ctx, s.DB, input.UserId, input.MatterId, report.ID, displayName)
	if err != nil {
		return nil, err
	}
	if !created {
		log.Info("report already linked to user")
	}

	s.publish(ctx, report, input.UserId, result.FromCache, outcome, correlationId, log)
	return result, nil
}

// resolve finds a fresh report for key or orders a new one, and ingests it.
// Callers hold the report lock for key.
func (s *ReportService) resolve(ctx context.Context, input CreateReportInput, class reporttype.Classification, key models.ReportKey, result *CreateReportResult, correlationId string, log *logrus.Entry) (*models.Report, *ingest.Outcome, error) {
	report, err := models.FindFreshReport(ctx, s.DB, key, s.now().Add(-s.freshness()))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		log.Warnf("report cache lookup failed, fetching a new report: %v", err)
		report = nil
	}

	if report != nil {
		log = log.WithField("report_id", report.ID)
		log.Info("report served from cache")
		result.FromCache = true
		result.Status = statusCached
		if report.IsIngested() {
			return report, nil, nil
		}
		outcome, err := s.ingestCached(ctx, report, correlationId, log)
		if err != nil {
			return nil, nil, err
		}
		return report, outcome, nil
	}

	fetched, err := s.Fetcher.CreateAndFetch(ctx, input.Abn, class)
	if err != nil {
		return nil, nil, err
	}
	report = &models.Report{
		Uuid:           fetched.Uuid,
		Abn:            input.Abn,
		Category:       class.Category,
		Subtype:        key.SubtypePtr(),
		RequestedType:  input.Type,
		UpstreamStatus: fetched.Status,
		UserId:         input.UserId,
	}
	if err := models.CreateReport(ctx, s.DB, report); err != nil {
		return nil, nil, err
	}
	log = log.WithField("report_id", report.ID)
	s.keepRaw(ctx, report, fetched.Raw, log)
	outcome, err := s.Ingester.IngestWith(ctx, report.ID, fetched.Raw, ingest.Options{
		TriggeredBy:   models.IngestTriggeredCreate,
		CorrelationId: correlationId,
	})
	if err != nil {
		return nil, nil, err
	}
	result.Status = fetched.Status
	return report, outcome, nil
}

// lockReport serializes lookup, fetch and ingestion per report key, so
// concurrent misses place a single upstream order. The lock is best-effort:
// when the lock store fails the call proceeds unlocked.
func (s *ReportService) lockReport(ctx context.Context, key models.ReportKey, log *logrus.Entry) (func(), error) {
	lock, err := s.locker().Obtain(ctx, key.LockKey(), s.timeout())
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ingest.ErrLockHeld):
		return nil, fmt.Errorf("report %s: %w", key.LockKey(), err)
	case err != nil:
		log.Warnf("report lock unavailable, continuing unlocked: %v", err)
		return func() {}, nil
	case lock == nil:
		return func() {}, nil
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warnf("release report lock: %v", err)
		}
	}, nil
}

func (s *ReportService) locker() ingest.Locker {
	if s.Locker != nil {
		return s.Locker
	}
	return processLocker
}

// ingestCached completes ingestion of a cached report from its stored
// document, or from the upstream when none was kept.
func (s *ReportService) ingestCached(ctx context.Context, report *models.Report, correlationId string, log *logrus.Entry) (*ingest.Outcome, error) {
	raw, err := s.loadRaw(ctx, report, log)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		log.Warn("cached report has no stored payload and no upstream uuid; ingestion deferred")
		return nil, nil
	}
	return s.Ingester.IngestWith(ctx, report.ID, raw, ingest.Options{
		TriggeredBy:   models.IngestTriggeredCacheHit,
		CorrelationId: correlationId,
	})
}

func (s *ReportService) loadRaw(ctx context.Context, report *models.Report, log *logrus.Entry) ([]byte, error) {
	if s.RawStore != nil && report.RawPayloadRef != nil && *report.RawPayloadRef != "" {
		raw, err := s.RawStore.Read(ctx, *report.RawPayloadRef)
		if err == nil {
			return raw, nil
		}
		log.Warnf("read stored payload %s: %v", *report.RawPayloadRef, err)
	}
	if report.Uuid == "" {
		return nil, nil
	}
	return s.Fetcher.Refetch(ctx, report.Uuid)
}

// LoadRawPayload returns the document a report was ingested from.
func (s *ReportService) LoadRawPayload(ctx context.Context, report *models.Report) ([]byte, error) {
	raw, err := s.loadRaw(ctx, report, s.logger().WithField("report_id", report.ID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, utils.ErrorRecordNotFound
	}
	return raw, nil
}

// Reingest runs ingestion again for an existing report. The per-report guard
// still applies, so only reports with nothing stored are written.
func (s *ReportService) Reingest(ctx context.Context, reportId uint) (*ingest.Outcome, error) {
	report, err := models.GetReport(ctx, s.DB, reportId)
	if err != nil {
		return nil, err
	}
	raw, err := s.LoadRawPayload(ctx, report)
	if err != nil {
		return nil, err
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	return s.Ingester.IngestWith(ctx, report.ID, raw, ingest.Options{
		TriggeredBy:   models.IngestTriggeredReingest,
		CorrelationId: correlationId,
	})
}

func (s *ReportService) keepRaw(ctx context.Context, report *models.Report, raw []byte, log *logrus.Entry) {
	if s.RawStore == nil || report.Uuid == "" {
		return
	}
	key := RawPayloadKey(report.Uuid)
	if err := s.RawStore.Save(ctx, key, raw); err != nil {
		log.Warnf("store raw payload: %v", err)
		return
	}
	if err := models.SetRawPayloadRef(ctx, s.DB, report.ID, key); err != nil {
		log.Warnf("set raw payload ref: %v", err)
		return
	}
	report.RawPayloadRef = &key
}

func (s *ReportService) publish(ctx context.Context, report *models.Report, userId uint, fromCache bool, outcome *ingest.Outcome, correlationId string, log *logrus.Entry) {
	if s.Publisher == nil {
		return
	}
	status := string(models.IngestionStatusSkipped)
	if outcome != nil {
		status = string(outcome.Status)
	}
	msg := config.ReportReadyMessage{
		ReportId:      report.ID,
		Uuid:          report.Uuid,
		Abn:           report.Abn,
		Category:      report.Category,
		Subtype:       utils.DereferencePtr(report.Subtype),
		UserId:        userId,
		IngestStatus:  status,
		FromCache:     fromCache,
		CorrelationId: correlationId,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.Publisher.PublishReportReady(ctx, msg); err != nil {
		log.Warnf("publish report ready: %v", err)
	}
}

// normalizeAbn drops the spaces users type between ABN digit groups.
func normalizeAbn(abn string) string {
	return strings.Join(strings.Fields(abn), "")
}

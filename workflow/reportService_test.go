package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bizcheckau/reports_backend/alares"
	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/ingest"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/reporttype"
	"github.com/bizcheckau/reports_backend/testdb"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const acmePayload = `{
	"uuid": "u-1",
	"entity": {"name": "ACME PTY LTD", "abn": "51824753556"},
	"asic_extracts": [{
		"id": "ext-1",
		"directors": [{"name": "Jane Doe", "type": "Director", "address": {"suburb": "Sydney", "state": "NSW"}}]
	}]
}`

type fakeFetcher struct {
	mu     sync.Mutex
	raw    string
	uuid   string
	status string
	err    error
	block  bool
	// entered receives on every CreateAndFetch; the call then waits for proceed.
	entered  chan struct{}
	proceed  chan struct{}
	creates  int
	refetchs []string
	classes  []reporttype.Classification
}

func (f *fakeFetcher) CreateAndFetch(ctx context.Context, abn string, class reporttype.Classification) (*alares.Result, error) {
	f.mu.Lock()
	f.creates++
	f.classes = append(f.classes, class)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.proceed
	}
	if f.block {
		<-ctx.Done()
		return nil, &alares.FetchError{Upstream: "alares", Message: "request", Err: ctx.Err()}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &alares.Result{Uuid: f.uuid, Status: f.status, Raw: []byte(f.raw)}, nil
}

func (f *fakeFetcher) Refetch(ctx context.Context, uuid string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refetchs = append(f.refetchs, uuid)
	return []byte(f.raw), nil
}

type memoryRawStore struct {
	objects map[string][]byte
	reads   int
}

func (m *memoryRawStore) Save(_ context.Context, key string, raw []byte) error {
	m.objects[key] = append([]byte(nil), raw...)
	return nil
}

func (m *memoryRawStore) Read(_ context.Context, key string) ([]byte, error) {
	m.reads++
	raw, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return raw, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []config.ReportReadyMessage
}

func (p *recordingPublisher) PublishReportReady(_ context.Context, msg config.ReportReadyMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type serviceFixture struct {
	svc       *ReportService
	db        *gorm.DB
	fetcher   *fakeFetcher
	store     *memoryRawStore
	publisher *recordingPublisher
	logs      *logtest.Hook
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := testdb.Open(t)
	logger, hook := logtest.NewNullLogger()
	fetcher := &fakeFetcher{raw: acmePayload, uuid: "u-1", status: "completed"}
	store := &memoryRawStore{objects: map[string][]byte{}}
	publisher := &recordingPublisher{}
	svc := &ReportService{
		DB:        db,
		Fetcher:   fetcher,
		Ingester:  &ingest.Ingester{DB: db, Logger: logger},
		RawStore:  store,
		Publisher: publisher,
		Logger:    logger,
		Timeout:   5 * time.Second,
	}
	return &serviceFixture{svc: svc, db: db, fetcher: fetcher, store: store, publisher: publisher, logs: hook}
}

func TestCreateReportFetchesAndIngests(t *testing.T) {
	fx := newFixture(t)

	result, err := fx.svc.CreateReport(context.Background(), CreateReportInput{
		UserId: 1, Abn: "51 824 753 556", Type: "asic-current",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.False(t, result.FromCache)
	require.Equal(t, "completed", result.Status)
	require.Equal(t, "u-1", result.Uuid)
	require.Equal(t, "ASIC Current", result.Type)

	var report models.Report
	require.NoError(t, fx.db.First(&report, result.ReportId).Error)
	require.Equal(t, "51824753556", report.Abn)
	require.Equal(t, reporttype.CategoryASIC, report.Category)
	require.Equal(t, reporttype.SubtypeCurrent, *report.Subtype)
	require.Equal(t, "reports/u-1.json", *report.RawPayloadRef)
	require.NotNil(t, report.IngestedAt)

	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Entity{}, "name = ?", "ACME PTY LTD"))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.AsicExtract{}))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Director{}, "name = ?", "Jane Doe"))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Address{}, "category = ? AND suburb = ?", models.AddressCategoryDirector, "Sydney"))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.UserReport{}, "user_id = ? AND report_id = ?", 1, result.ReportId))

	require.Contains(t, fx.store.objects, "reports/u-1.json")
	require.Len(t, fx.publisher.messages, 1)
	msg := fx.publisher.messages[0]
	require.Equal(t, result.ReportId, msg.ReportId)
	require.Equal(t, string(models.IngestionStatusSuccess), msg.IngestStatus)
	require.NotEmpty(t, msg.CorrelationId)
}

func TestCreateReportServesFreshReportFromCache(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.CreateReport(ctx, CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic current"})
	require.NoError(t, err)

	second, err := fx.svc.CreateReport(ctx, CreateReportInput{UserId: 2, Abn: "51824753556", Type: "ASIC-Current"})
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, "cached", second.Status)
	require.Equal(t, first.ReportId, second.ReportId)

	require.Equal(t, 1, fx.fetcher.creates)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Report{}))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.AsicExtract{}))
	require.EqualValues(t, 2, testdb.Count(t, fx.db, &models.UserReport{}))
	require.Equal(t, string(models.IngestionStatusSkipped), fx.publisher.messages[1].IngestStatus)
}

func TestCreateReportOrdersOnceForConcurrentMisses(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.entered = make(chan struct{}, 2)
	fx.fetcher.proceed = make(chan struct{})
	ctx := context.Background()

	results := make([]*CreateReportResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = fx.svc.CreateReport(ctx, CreateReportInput{
				UserId: uint(i + 1), Abn: "51824753556", Type: "asic-current",
			})
		}(i)
	}

	<-fx.fetcher.entered
	select {
	case <-fx.fetcher.entered:
		close(fx.fetcher.proceed)
		wg.Wait()
		t.Fatalf("second upstream order placed while the first was in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(fx.fetcher.proceed)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 1, fx.fetcher.creates)
	require.Equal(t, results[0].ReportId, results[1].ReportId)
	require.NotEqual(t, results[0].FromCache, results[1].FromCache)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Report{}))
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.AsicExtract{}))
	require.EqualValues(t, 2, testdb.Count(t, fx.db, &models.UserReport{}))
}

func TestCreateReportTreatsLookupFailureAsMiss(t *testing.T) {
	fx := newFixture(t)
	subtype := reporttype.SubtypeCurrent
	ingested := time.Now()
	fresh := &models.Report{Uuid: "u-0", Abn: "51824753556", Category: "ASIC", Subtype: &subtype, UserId: 9, IngestedAt: &ingested}
	require.NoError(t, fx.db.Create(fresh).Error)

	failed := false
	require.NoError(t, fx.db.Callback().Query().Before("gorm:query").Register("test:fail_report_lookup", func(tx *gorm.DB) {
		if !failed && tx.Statement.Table == "reports" {
			failed = true
			tx.AddError(errors.New("lookup unavailable"))
		}
	}))

	result, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic-current"})
	require.NoError(t, err)
	require.True(t, failed)
	require.False(t, result.FromCache)
	require.NotEqual(t, fresh.ID, result.ReportId)
	require.Equal(t, 1, fx.fetcher.creates)
	require.EqualValues(t, 2, testdb.Count(t, fx.db, &models.Report{}))

	warned := false
	for _, entry := range fx.logs.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "cache lookup failed") {
			warned = true
		}
	}
	require.True(t, warned, "expected a warning for the failed lookup")
}

func TestCreateReportIgnoresStaleReport(t *testing.T) {
	fx := newFixture(t)
	subtype := reporttype.SubtypeCurrent
	stale := &models.Report{Abn: "51824753556", Category: "ASIC", Subtype: &subtype, UserId: 9, CreatedAt: time.Now().Add(-8 * 24 * time.Hour)}
	require.NoError(t, fx.db.Create(stale).Error)

	result, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic-current"})
	require.NoError(t, err)
	require.False(t, result.FromCache)
	require.NotEqual(t, stale.ID, result.ReportId)
	require.Equal(t, 1, fx.fetcher.creates)
}

func TestCreateReportCompletesIngestionOfCachedReport(t *testing.T) {
	fx := newFixture(t)
	ref := RawPayloadKey("u-1")
	fx.store.objects[ref] = []byte(acmePayload)
	subtype := reporttype.SubtypeCurrent
	cached := &models.Report{Uuid: "u-1", Abn: "51824753556", Category: "ASIC", Subtype: &subtype, UserId: 9, RawPayloadRef: &ref}
	require.NoError(t, fx.db.Create(cached).Error)

	result, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic"})
	require.NoError(t, err)
	require.True(t, result.FromCache)
	require.Equal(t, cached.ID, result.ReportId)
	require.Equal(t, 0, fx.fetcher.creates)
	require.Empty(t, fx.fetcher.refetchs)
	require.Equal(t, 1, fx.store.reads)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.AsicExtract{}, "report_id = ?", cached.ID))

	var run models.IngestionRun
	require.NoError(t, fx.db.Where("report_id = ?", cached.ID).First(&run).Error)
	require.Equal(t, models.IngestTriggeredCacheHit, run.TriggeredBy)
}

func TestCreateReportRefetchesCachedReportWithoutStoredPayload(t *testing.T) {
	fx := newFixture(t)
	fx.svc.RawStore = nil
	cached := &models.Report{Uuid: "u-7", Abn: "51824753556", Category: "COURT", UserId: 9}
	require.NoError(t, fx.db.Create(cached).Error)

	result, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "court"})
	require.NoError(t, err)
	require.True(t, result.FromCache)
	require.Equal(t, []string{"u-7"}, fx.fetcher.refetchs)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.Entity{}, "report_id = ?", cached.ID))
}

func TestCreateReportRejectsBareDirectorType(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "director"})
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.Equal(t, 0, fx.fetcher.creates)
}

func TestCreateReportRequiresAbn(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "  ", Type: "asic"})
	require.ErrorIs(t, err, ErrInvalidAbn)
}

func TestCreateReportPropagatesFetchError(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.err = &alares.FetchError{Upstream: "alares", StatusCode: 502, Message: "bad gateway"}

	_, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "ato"})
	require.Error(t, err)
	fe, ok := alares.AsFetchError(err)
	require.True(t, ok)
	require.Equal(t, 502, fe.StatusCode)
	require.EqualValues(t, 0, testdb.Count(t, fx.db, &models.Report{}))
	require.EqualValues(t, 0, testdb.Count(t, fx.db, &models.UserReport{}))
}

func TestCreateReportTimesOut(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.block = true
	fx.svc.Timeout = 20 * time.Millisecond

	_, err := fx.svc.CreateReport(context.Background(), CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic"})
	require.ErrorIs(t, err, ErrReportTimeout)
	require.EqualValues(t, 0, testdb.Count(t, fx.db, &models.UserReport{}))
}

func TestCreateReportChecksMatterOwnership(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	matter, err := models.CreateMatter(ctx, fx.db, 2, models.NewMatter{Name: "Other"})
	require.NoError(t, err)

	_, err = fx.svc.CreateReport(ctx, CreateReportInput{UserId: 1, MatterId: &matter.ID, Abn: "51824753556", Type: "asic"})
	require.ErrorIs(t, err, models.ErrMatterNotOwned)
	require.Equal(t, 0, fx.fetcher.creates)

	result, err := fx.svc.CreateReport(ctx, CreateReportInput{UserId: 2, MatterId: &matter.ID, Abn: "51824753556", Type: "asic"})
	require.NoError(t, err)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.UserReport{}, "matter_id = ? AND report_id = ?", matter.ID, result.ReportId))
}

func TestCreateReportReplaysPaymentReference(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	input := CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic-current", PaymentRef: "pi_123"}

	first, err := fx.svc.CreateReport(ctx, input)
	require.NoError(t, err)
	second, err := fx.svc.CreateReport(ctx, input)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fx.fetcher.creates)
	require.Len(t, fx.publisher.messages, 1)

	var key models.IdempotencyKey
	require.NoError(t, fx.db.Where("idem_key = ?", "pi_123").First(&key).Error)
	require.Equal(t, models.IdempotencyStatusSucceeded, key.Status)

	input.UserId = 2
	_, err = fx.svc.CreateReport(ctx, input)
	require.ErrorIs(t, err, ErrIdempotencyKeyReused)
}

func TestCreateReportRetriesFailedPaymentReference(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	input := CreateReportInput{UserId: 1, Abn: "51824753556", Type: "asic", PaymentRef: "pi_456"}

	fx.fetcher.err = &alares.FetchError{Upstream: "alares", StatusCode: 503, Message: "unavailable"}
	_, err := fx.svc.CreateReport(ctx, input)
	require.Error(t, err)

	var key models.IdempotencyKey
	require.NoError(t, fx.db.Where("idem_key = ?", "pi_456").First(&key).Error)
	require.Equal(t, models.IdempotencyStatusFailed, key.Status)

	fx.fetcher.err = nil
	result, err := fx.svc.CreateReport(ctx, input)
	require.NoError(t, err)
	require.NotZero(t, result.ReportId)
	require.Equal(t, 2, fx.fetcher.creates)
}

func TestReingestUsesStoredPayload(t *testing.T) {
	fx := newFixture(t)
	ref := RawPayloadKey("u-9")
	fx.store.objects[ref] = []byte(acmePayload)
	report := &models.Report{Uuid: "u-9", Abn: "51824753556", Category: "ASIC", UserId: 1, RawPayloadRef: &ref}
	require.NoError(t, fx.db.Create(report).Error)

	outcome, err := fx.svc.Reingest(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, models.IngestionStatusSuccess, outcome.Status)

	again, err := fx.svc.Reingest(context.Background(), report.ID)
	require.NoError(t, err)
	require.True(t, again.Skipped)
	require.EqualValues(t, 1, testdb.Count(t, fx.db, &models.AsicExtract{}))
}

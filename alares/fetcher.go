package alares

import (
	"context"
	"errors"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/payload"
	"github.com/bizcheckau/reports_backend/reporttype"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is one produced report document.
type Result struct {
	Uuid   string
	Status string
	Raw    []byte
}

// Fetcher runs the two-phase create-then-fetch against the right upstream.
type Fetcher struct {
	Alares *Client
	Ppsr   *PpsrClient
	// RetryAttempts bounds refetches while the document's extracts are still empty.
	RetryAttempts int
	Retry         utils.BackoffPolicy
	// PpsrSettle is consulted once, before reading PPSR search results.
	PpsrSettle utils.BackoffPolicy
	Logger     *logrus.Logger
	Tracer     trace.Tracer
}

// NewFetcherFromEnv wires both clients and the configured delays.
func NewFetcherFromEnv() (*Fetcher, error) {
	client, err := NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	ppsr, err := NewPpsrClientFromEnv()
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		Alares:        client,
		Ppsr:          ppsr,
		RetryAttempts: config.FetchRetryAttempts(),
		Retry:         utils.FixedBackoff{Delay: config.FetchRetryDelay()},
		PpsrSettle:    utils.FixedBackoff{Delay: config.PpsrSettleDelay()},
		Logger:        config.GetLogger(),
		Tracer:        otel.Tracer("reports-backend/alares"),
	}, nil
}

func (f *Fetcher) tracer() trace.Tracer {
	if f.Tracer != nil {
		return f.Tracer
	}
	return otel.Tracer("reports-backend/alares")
}

func (f *Fetcher) logger() *logrus.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return config.GetLogger()
}

// CreateAndFetch produces a new report for abn and returns its raw document.
func (f *Fetcher) CreateAndFetch(ctx context.Context, abn string, class reporttype.Classification) (*Result, error) {
	ctx, span := f.tracer().Start(ctx, "alares.CreateAndFetch", trace.WithAttributes(
		attribute.String("report.abn", abn),
		attribute.String("report.category", class.Category),
	))
	defer span.End()

	var (
		result *Result
		err    error
	)
	if class.UsesPpsrCloud() {
		result, err = f.fetchPpsr(ctx, abn)
	} else {
		result, err = f.fetchStandard(ctx, abn, class)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("report.uuid", result.Uuid))
	return result, nil
}

// Refetch reads an existing report again, with the same retry-on-empty rule.
func (f *Fetcher) Refetch(ctx context.Context, uuid string) ([]byte, error) {
	if f.Alares == nil {
		return nil, errors.New("alares client is not configured")
	}
	raw, err := f.Alares.GetReport(ctx, uuid)
	if err != nil {
		return nil, err
	}
	return f.awaitExtracts(ctx, uuid, raw)
}

func (f *Fetcher) fetchStandard(ctx context.Context, abn string, class reporttype.Classification) (*Result, error) {
	if f.Alares == nil {
		return nil, errors.New("alares client is not configured")
	}
	created, err := f.Alares.CreateReport(ctx, abn, class)
	if err != nil {
		return nil, err
	}
	raw, err := f.Alares.GetReport(ctx, created.Uuid)
	if err != nil {
		return nil, err
	}
	raw, err = f.awaitExtracts(ctx, created.Uuid, raw)
	if err != nil {
		return nil, err
	}

	status := created.Status
	if s := statusOf(raw); s != "" {
		status = s
	}
	return &Result{Uuid: created.Uuid, Status: status, Raw: raw}, nil
}

// awaitExtracts refetches while asic_extracts is present but empty. Running
// out of attempts is not an error; the last document is returned.
func (f *Fetcher) awaitExtracts(ctx context.Context, uuid string, raw []byte) ([]byte, error) {
	policy := f.Retry
	if policy == nil {
		policy = utils.NoBackoff
	}
	for attempt := 1; attempt <= f.RetryAttempts && payload.NeedsRefetch(raw); attempt++ {
		if err := utils.SleepContext(ctx, policy.NextDelay(attempt)); err != nil {
			return nil, err
		}
		next, err := f.Alares.GetReport(ctx, uuid)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			f.logger().WithFields(logrus.Fields{
				"uuid":    uuid,
				"attempt": attempt,
			}).Warnf("refetch failed, keeping last document: %v", err)
			return raw, nil
		}
		raw = next
	}
	if payload.NeedsRefetch(raw) {
		f.logger().WithFields(logrus.Fields{
			"uuid":     uuid,
			"attempts": f.RetryAttempts,
		}).Info("asic extracts still empty after retries")
	}
	return raw, nil
}

func (f *Fetcher) fetchPpsr(ctx context.Context, abn string) (*Result, error) {
	if f.Ppsr == nil {
		return nil, errors.New("ppsr client is not configured")
	}
	cloudId, status, err := f.Ppsr.SubmitGrantorSearch(ctx, abn)
	if err != nil {
		return nil, err
	}
	settle := f.PpsrSettle
	if settle == nil {
		settle = utils.NoBackoff
	}
	if err := utils.SleepContext(ctx, settle.NextDelay(1)); err != nil {
		return nil, err
	}
	raw, err := f.Ppsr.GetSearchResults(ctx, cloudId)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = "completed"
	}
	return &Result{Uuid: cloudId, Status: status, Raw: raw}, nil
}

func statusOf(raw []byte) string {
	p, err := payload.Decode(raw)
	if err != nil || p.Standard == nil {
		return ""
	}
	return p.Standard.Status.String()
}

package alares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bizcheckau/reports_backend/payload"
	"github.com/bizcheckau/reports_backend/reporttype"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(srv *httptest.Server, attempts int) *Fetcher {
	return &Fetcher{
		Alares:        NewClient(srv.URL, "test-token", 5*time.Second),
		Ppsr:          NewPpsrClient(srv.URL, "ppsr-token", 5*time.Second),
		RetryAttempts: attempts,
		Retry:         utils.NoBackoff,
		PpsrSettle:    utils.NoBackoff,
	}
}

func TestCreateAndFetchStandard(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/reports":
			q := r.URL.Query()
			if q.Get("abn") != "51824753556" || q.Get("asic_extract") != "1" || q.Get("asic_type") != "current" {
				t.Errorf("unexpected create query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"uuid":"rep-1","status":"pending"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/reports/rep-1":
			n := atomic.AddInt32(&gets, 1)
			if n < 3 {
				_, _ = w.Write([]byte(`{"uuid":"rep-1","status":"pending","asic_extracts":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"uuid":"rep-1","status":"completed","asic_extracts":[{"id":"ext-1"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv, 5)
	res, err := f.CreateAndFetch(context.Background(), "51824753556", reporttype.Classify("asic-current"))
	require.NoError(t, err)
	require.Equal(t, "rep-1", res.Uuid)
	require.Equal(t, "completed", res.Status)
	require.EqualValues(t, 3, atomic.LoadInt32(&gets))
	require.False(t, payload.NeedsRefetch(res.Raw))
}

func TestCreateAndFetchGivesUpAfterRetries(t *testing.T) {
	var gets int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"data":{"uuid":"rep-2","status":"pending"}}`))
			return
		}
		atomic.AddInt32(&gets, 1)
		_, _ = w.Write([]byte(`{"uuid":"rep-2","asic_extracts":[]}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, 5)
	res, err := f.CreateAndFetch(context.Background(), "123", reporttype.Classify("asic"))
	require.NoError(t, err)
	require.Equal(t, "rep-2", res.Uuid)
	require.Equal(t, "pending", res.Status)
	// the initial fetch plus five retries
	require.EqualValues(t, 6, atomic.LoadInt32(&gets))
	require.True(t, payload.NeedsRefetch(res.Raw))
}

func TestCreateAndFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, 5)
	_, err := f.CreateAndFetch(context.Background(), "123", reporttype.Classify("court"))
	require.Error(t, err)

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, fe.StatusCode)
	require.Equal(t, "upstream down", fe.Message)
	require.True(t, fe.Retryable())
}

func TestCreateAndFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := &Fetcher{Alares: NewClient(url, "t", time.Second), RetryAttempts: 1, Retry: utils.NoBackoff}
	_, err := f.CreateAndFetch(context.Background(), "123", reporttype.Classify("ato"))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, 0, fe.StatusCode)
	require.NotNil(t, fe.Unwrap())
}

func TestCreateAndFetchPpsrMergesPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/searches/grantor":
			var req grantorSearchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrganisationNumber != "51824753556" {
				t.Errorf("unexpected search request %+v (%v)", req, err)
			}
			_, _ = w.Write([]byte(`{"ppsrCloudId":"cloud-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/searches/cloud-1/results":
			summary := `{"searchNumber":"S1","organisationName":"ACME PTY LTD"}`
			if r.URL.Query().Get("page") == "1" {
				_, _ = w.Write([]byte(`{"resource":{"searchCriteriaSummaries":[` + summary + `],"items":[{"registrationNumber":"R1"}]},"pageNumber":1,"totalPages":2}`))
				return
			}
			_, _ = w.Write([]byte(`{"resource":{"searchCriteriaSummaries":[` + summary + `],"items":[{"registrationNumber":"R2"}]},"pageNumber":2,"totalPages":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(srv, 0)
	res, err := f.CreateAndFetch(context.Background(), "51824753556", reporttype.Classify("ppsr"))
	require.NoError(t, err)
	require.Equal(t, "cloud-1", res.Uuid)

	p, err := payload.Decode(res.Raw)
	require.NoError(t, err)
	require.Equal(t, payload.KindPPSR, p.Kind)
	require.Len(t, p.PPSR.Resource.SearchCriteriaSummaries, 1)
	require.Len(t, p.PPSR.Resource.Items, 2)
}

func TestPpsrSettleDelayHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ppsrCloudId":"cloud-2"}`))
	}))
	defer srv.Close()

	f := newTestFetcher(srv, 0)
	f.PpsrSettle = utils.FixedBackoff{Delay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.CreateAndFetch(ctx, "1", reporttype.Classify("ppsr"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateParams(t *testing.T) {
	cases := map[string]string{
		"asic historical":     "abn=1&asic_extract=1&asic_type=historical",
		"asic document":       "abn=1&asic_extract=1&asic_type=document_search",
		"court":               "abn=1&court=1",
		"director bankruptcy": "abn=1&director=1&director_type=bankruptcy",
		"abn lookup":          "abn=1&type=abn+lookup",
	}
	for in, want := range cases {
		if got := createParams("1", reporttype.Classify(in)).Encode(); got != want {
			t.Fatalf("createParams(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestCreateReportWithoutUuidFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "t", time.Second).CreateReport(context.Background(), "1", reporttype.Classify("court"))
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "no uuid"))
}

func TestRateLimitAdmitsFirstCallImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := newHTTPDoer(upstreamAlares, srv.URL, "test-token", 5*time.Second, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := d.do(ctx, http.MethodGet, "/reports/first", nil)
	require.NoError(t, err)

	// the next slot is a minute out; a short deadline gives up instead of waiting
	shortCtx, shortCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer shortCancel()
	_, err = d.do(shortCtx, http.MethodGet, "/reports/second", nil)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	require.Equal(t, "waiting for rate limit", fe.Message)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

// Package alares talks to the upstream report producers: the Alares report
// API for company, court, tax and director reports and PPSR Cloud for
// security-interest searches.
package alares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/payload"
	"github.com/bizcheckau/reports_backend/reporttype"
)

const upstreamAlares = "alares"

// Client is the Alares report API: POST creates a report, GET returns it.
type Client struct {
	*httpDoer
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{httpDoer: newHTTPDoer(upstreamAlares, baseURL, token, timeout, rateFromEnv("ALARES_RATE_LIMIT_PER_MIN"))}
}

func NewClientFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("ALARES_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.alares.com.au"
	}
	token := strings.TrimSpace(os.Getenv("ALARES_API_TOKEN"))
	if token == "" {
		return nil, errors.New("ALARES_API_TOKEN is required")
	}
	return NewClient(baseURL, token, config.UpstreamTimeout()), nil
}

// CreateResult is the acknowledgement of a report creation request.
type CreateResult struct {
	Uuid   string
	Status string
}

type createResponse struct {
	Uuid   payload.Text `json:"uuid"`
	Status payload.Text `json:"status"`
	Data   *struct {
		Uuid   payload.Text `json:"uuid"`
		Status payload.Text `json:"status"`
	} `json:"data"`
}

// CreateReport submits a report request for abn and returns its correlation id.
func (c *Client) CreateReport(ctx context.Context, abn string, class reporttype.Classification) (*CreateResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/reports?"+createParams(abn, class).Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp createResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Upstream: upstreamAlares, StatusCode: http.StatusOK, Message: "decode create response", Err: err}
	}
	result := &CreateResult{Uuid: resp.Uuid.String(), Status: resp.Status.String()}
	if result.Uuid == "" && resp.Data != nil {
		result.Uuid = resp.Data.Uuid.String()
		result.Status = resp.Data.Status.String()
	}
	if result.Uuid == "" {
		return nil, &FetchError{Upstream: upstreamAlares, StatusCode: http.StatusOK, Message: "create response carries no uuid"}
	}
	return result, nil
}

// GetReport returns the raw report document for uuid.
func (c *Client) GetReport(ctx context.Context, uuid string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(uuid), nil)
}

// createParams turns the classification into the report API's query flags.
func createParams(abn string, class reporttype.Classification) url.Values {
	params := url.Values{}
	params.Set("abn", abn)
	switch class.Category {
	case reporttype.CategoryASIC:
		params.Set("asic_extract", "1")
		params.Set("asic_type", strings.ToLower(strings.ReplaceAll(class.Subtype, " ", "_")))
	case reporttype.CategoryCourt:
		params.Set("court", "1")
	case reporttype.CategoryATO:
		params.Set("ato", "1")
	case reporttype.CategoryLandTitle:
		params.Set("land_title", "1")
	case reporttype.CategoryProperty:
		params.Set("property", "1")
	case reporttype.CategoryDirectorPPSR, reporttype.CategoryDirectorBankruptcy,
		reporttype.CategoryDirectorProperty, reporttype.CategoryDirectorRelated:
		params.Set("director", "1")
		params.Set("director_type", strings.ToLower(strings.TrimPrefix(class.Category, "DIRECTOR ")))
	default:
		params.Set("type", strings.ToLower(class.Category))
	}
	return params
}

func rateFromEnv(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

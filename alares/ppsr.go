package alares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/payload"
)

const (
	upstreamPpsr = "ppsr"
	// maxPpsrPages bounds the result walk if totalPages is missing or wrong.
	maxPpsrPages = 50
)

// PpsrClient is the PPSR Cloud API. Searches are asynchronous with no
// callback, so results are read after a settle delay.
type PpsrClient struct {
	*httpDoer
}

func NewPpsrClient(baseURL, token string, timeout time.Duration) *PpsrClient {
	return &PpsrClient{httpDoer: newHTTPDoer(upstreamPpsr, baseURL, token, timeout, rateFromEnv("PPSR_RATE_LIMIT_PER_MIN"))}
}

func NewPpsrClientFromEnv() (*PpsrClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("PPSR_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.ppsrcloud.com"
	}
	token := strings.TrimSpace(os.Getenv("PPSR_API_TOKEN"))
	if token == "" {
		return nil, errors.New("PPSR_API_TOKEN is required")
	}
	return NewPpsrClient(baseURL, token, config.UpstreamTimeout()), nil
}

type grantorSearchRequest struct {
	GrantorType            string `json:"grantorType"`
	OrganisationNumber     string `json:"organisationNumber"`
	OrganisationNumberType string `json:"organisationNumberType"`
}

type grantorSearchResponse struct {
	PpsrCloudId payload.Text `json:"ppsrCloudId"`
	Status      payload.Text `json:"status"`
}

// SubmitGrantorSearch opens an organisation grantor search by ABN.
func (c *PpsrClient) SubmitGrantorSearch(ctx context.Context, abn string) (string, string, error) {
	req := grantorSearchRequest{GrantorType: "organisation", OrganisationNumber: abn, OrganisationNumberType: "ABN"}
	body, err := c.do(ctx, http.MethodPost, "/searches/grantor", req)
	if err != nil {
		return "", "", err
	}
	var resp grantorSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", &FetchError{Upstream: upstreamPpsr, StatusCode: http.StatusOK, Message: "decode search response", Err: err}
	}
	if !resp.PpsrCloudId.Valid() {
		return "", "", &FetchError{Upstream: upstreamPpsr, StatusCode: http.StatusOK, Message: "search response carries no ppsrCloudId"}
	}
	return resp.PpsrCloudId.String(), resp.Status.String(), nil
}

type ppsrResultPage struct {
	Resource struct {
		SearchCriteriaSummaries payload.RawList `json:"searchCriteriaSummaries"`
		Items                   payload.RawList `json:"items"`
	} `json:"resource"`
	PageNumber payload.Int `json:"pageNumber"`
	TotalPages payload.Int `json:"totalPages"`
}

// GetSearchResults walks every result page and merges them into one
// document of the shape payload.PpsrReportPayload decodes.
func (c *PpsrClient) GetSearchResults(ctx context.Context, ppsrCloudId string) ([]byte, error) {
	var (
		summaries []json.RawMessage
		items     []json.RawMessage
		seen      = map[string]bool{}
	)
	for page := 1; page <= maxPpsrPages; page++ {
		path := fmt.Sprintf("/searches/%s/results?page=%d", url.PathEscape(ppsrCloudId), page)
		body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var parsed ppsrResultPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, &FetchError{Upstream: upstreamPpsr, StatusCode: http.StatusOK, Message: "decode result page", Err: err}
		}
		for _, s := range parsed.Resource.SearchCriteriaSummaries {
			// later pages repeat the criteria
			key := string(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			summaries = append(summaries, s)
		}
		items = append(items, parsed.Resource.Items...)

		total := parsed.TotalPages.Ptr()
		if total == nil || page >= *total || len(parsed.Resource.Items) == 0 {
			break
		}
	}

	merged := map[string]any{
		"ppsrCloudId": ppsrCloudId,
		"resource": map[string]any{
			"searchCriteriaSummaries": nonNil(summaries),
			"items":                   nonNil(items),
		},
	}
	return json.Marshal(merged)
}

func nonNil(list []json.RawMessage) []json.RawMessage {
	if list == nil {
		return []json.RawMessage{}
	}
	return list
}

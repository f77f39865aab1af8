package alares

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// httpDoer is the transport shared by both upstream clients: bearer auth,
// an optional per-minute rate limit and FetchError mapping.
type httpDoer struct {
	upstream string
	baseURL  string
	token    string
	http     *http.Client
	limiter  *rate.Limiter
}

func newHTTPDoer(upstream, baseURL, token string, timeout time.Duration, ratePerMin int) *httpDoer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &httpDoer{
		upstream: upstream,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: timeout},
	}
	if ratePerMin > 0 {
		// burst 1: the first call goes out at once, later ones are spaced
		d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMin)), 1)
	}
	return d
}

func (d *httpDoer) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Upstream: d.upstream, Message: "waiting for rate limit", Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return nil, &FetchError{Upstream: d.upstream, Message: "build request", Err: err}
	}
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, &FetchError{Upstream: d.upstream, Message: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Upstream: d.upstream, StatusCode: resp.StatusCode, Message: "read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &FetchError{Upstream: d.upstream, StatusCode: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

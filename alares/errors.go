package alares

import (
	"errors"
	"fmt"
)

// FetchError is an upstream failure. StatusCode is 0 when no HTTP response
// was received (network error, timeout).
type FetchError struct {
	Upstream   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error %d: %s", e.Upstream, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s api request failed: %s: %v", e.Upstream, e.Message, e.Err)
	}
	return fmt.Sprintf("%s api request failed: %s", e.Upstream, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *FetchError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// AsFetchError unwraps err into a *FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

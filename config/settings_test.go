package config

import (
	"testing"
	"time"
)

func TestRetryDelayDoublesUpToCap(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := RetryDelay(tc.attempt); got != tc.want {
			t.Fatalf("RetryDelay(%d): expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

func TestIntFromEnvFallsBackOnBadValues(t *testing.T) {
	t.Setenv("REPORT_CACHE_DAYS", "3")
	if got := ReportFreshnessWindow(); got != 72*time.Hour {
		t.Fatalf("expected 72h, got %s", got)
	}
	t.Setenv("REPORT_CACHE_DAYS", "seven")
	if got := ReportFreshnessWindow(); got != 7*24*time.Hour {
		t.Fatalf("expected the default window, got %s", got)
	}
}

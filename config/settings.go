package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env. Connections are opened from main(), never in init().
	godotenv.Load()
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// RetryDelay is the wait before dependency connect attempt+1: 2s doubling, capped at 30s.
func RetryDelay(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	sleep := time.Second * time.Duration(1<<attempt)
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}

// ReportFreshnessWindow is how long a purchased report can be reused for the same
// (ABN, category, subtype). Env: REPORT_CACHE_DAYS (default 7).
func ReportFreshnessWindow() time.Duration {
	return time.Duration(intFromEnv("REPORT_CACHE_DAYS", 7)) * 24 * time.Hour
}

// FetchRetryAttempts bounds the refetch loop when the upstream returns an empty collection.
// Env: FETCH_RETRY_ATTEMPTS (default 5).
func FetchRetryAttempts() int {
	n := intFromEnv("FETCH_RETRY_ATTEMPTS", 5)
	if n < 0 {
		return 0
	}
	return n
}

// Env: FETCH_RETRY_DELAY_MS (default 2000).
func FetchRetryDelay() time.Duration {
	return time.Duration(intFromEnv("FETCH_RETRY_DELAY_MS", 2000)) * time.Millisecond
}

// PpsrSettleDelay is the wait between submitting a PPSR search and reading its results.
// Env: PPSR_SETTLE_DELAY_SECONDS (default 30).
func PpsrSettleDelay() time.Duration {
	return time.Duration(intFromEnv("PPSR_SETTLE_DELAY_SECONDS", 30)) * time.Second
}

// Env: UPSTREAM_TIMEOUT_SECONDS (default 30).
func UpstreamTimeout() time.Duration {
	return time.Duration(intFromEnv("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second
}

// ReportCreateTimeout is the overall deadline of one report creation call.
// Env: REPORT_CREATE_TIMEOUT_SECONDS (default 180, covers the PPSR settle delay).
func ReportCreateTimeout() time.Duration {
	return time.Duration(intFromEnv("REPORT_CREATE_TIMEOUT_SECONDS", 180)) * time.Second
}

// Env: RAW_PAYLOAD_BUCKET. Empty disables raw payload retention.
func RawPayloadBucket() string {
	return strings.TrimSpace(os.Getenv("RAW_PAYLOAD_BUCKET"))
}

// Env: REPORT_READY_TOPIC. Empty disables the report-ready event.
func ReportReadyTopic() string {
	return strings.TrimSpace(os.Getenv("REPORT_READY_TOPIC"))
}

func EnvBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

// reingest re-runs ingestion for one report from its stored raw payload
// (RAW_PAYLOAD_BUCKET), falling back to the upstream by uuid. Reports that
// already have rows are skipped by the ingestion guard.
//
// Usage:
//
//	go run ./cmd/reingest -report 42
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/bizcheckau/reports_backend/workflow"
	"github.com/google/uuid"
)

func main() {
	reportID := flag.Uint("report", 0, "Required: report id")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout")
	flag.Parse()

	if *reportID == 0 {
		fmt.Fprintln(os.Stderr, "-report is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	svc, err := workflow.NewReportService(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report service: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = utils.SetCorrelationIdInContext(ctx, "reingest-"+uuid.NewString())

	outcome, err := svc.Reingest(ctx, *reportID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reingest report %d: %v\n", *reportID, err)
		os.Exit(1)
	}
	if outcome.Skipped {
		fmt.Printf("report %d skipped: %s\n", *reportID, outcome.SkipReason)
		return
	}
	fmt.Printf("report %d: status=%s records=%d errors=%d\n", *reportID, outcome.Status, outcome.Stats.Total(), len(outcome.Failures))
	for _, f := range outcome.Failures {
		fmt.Printf("  %s %s: %v\n", f.Aggregate, f.SourceId, f.Err)
	}
	if outcome.Status == models.IngestionStatusFailed {
		os.Exit(2)
	}
}

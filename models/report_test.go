package models_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/testdb"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFindFreshReportWindow(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	now := time.Now()
	since := now.Add(-7 * 24 * time.Hour)

	stale := &models.Report{Abn: "51824753556", Category: "ASIC", Subtype: strPtr("Current"), UserId: 1, CreatedAt: now.Add(-8 * 24 * time.Hour)}
	require.NoError(t, db.Create(stale).Error)

	key := models.ReportKey{Abn: "51824753556", Category: "ASIC", Subtype: "Current"}
	got, err := models.FindFreshReport(ctx, db, key, since)
	require.NoError(t, err)
	require.Nil(t, got)

	fresh := &models.Report{Abn: "51824753556", Category: "ASIC", Subtype: strPtr("Current"), UserId: 2, CreatedAt: now.Add(-6 * 24 * time.Hour)}
	require.NoError(t, db.Create(fresh).Error)

	got, err = models.FindFreshReport(ctx, db, key, since)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, fresh.ID, got.ID)
}

func TestFindFreshReportPrefersNewest(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	now := time.Now()

	older := &models.Report{Abn: "111", Category: "COURT", UserId: 1, CreatedAt: now.Add(-3 * time.Hour)}
	newer := &models.Report{Abn: "111", Category: "COURT", UserId: 1, CreatedAt: now.Add(-1 * time.Hour)}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)

	got, err := models.FindFreshReport(ctx, db, models.ReportKey{Abn: "111", Category: "COURT"}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, newer.ID, got.ID)
}

func TestFindFreshReportMatchesSubtypeExactly(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	since := time.Now().Add(-time.Hour)

	require.NoError(t, db.Create(&models.Report{Abn: "222", Category: "ASIC", Subtype: strPtr("Historical"), UserId: 1}).Error)

	got, err := models.FindFreshReport(ctx, db, models.ReportKey{Abn: "222", Category: "ASIC", Subtype: "Current"}, since)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = models.FindFreshReport(ctx, db, models.ReportKey{Abn: "222", Category: "ASIC"}, since)
	require.NoError(t, err)
	require.Nil(t, got, "a NULL subtype key must not match a subtyped report")

	got, err = models.FindFreshReport(ctx, db, models.ReportKey{Abn: "222", Category: "ASIC", Subtype: "Historical"}, since)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestReportBookkeeping(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	report := &models.Report{Abn: "333", Category: "ATO", UserId: 1, Uuid: "abc"}
	require.NoError(t, models.CreateReport(ctx, db, report))
	require.NotZero(t, report.ID)

	require.NoError(t, models.SetRawPayloadRef(ctx, db, report.ID, "reports/abc.json"))

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, models.MarkReportIngested(ctx, db, report.ID, first))
	require.NoError(t, models.MarkReportIngested(ctx, db, report.ID, first.Add(time.Hour)))

	got, err := models.GetReport(ctx, db, report.ID)
	require.NoError(t, err)
	require.Equal(t, "reports/abc.json", *got.RawPayloadRef)
	require.True(t, got.IsIngested())
	require.True(t, first.Equal(got.IngestedAt.UTC()), "ingested_at is only set once")

	_, err = models.GetReport(ctx, db, report.ID+100)
	require.True(t, errors.Is(err, utils.ErrorRecordNotFound))
}

func TestGetReportPreloadsDetail(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	report := &models.Report{Abn: "444", Category: "ASIC", UserId: 1}
	require.NoError(t, db.Create(report).Error)
	name := "ACME PTY LTD"
	require.NoError(t, db.Create(&models.Entity{ReportId: report.ID, Name: &name}).Error)
	require.NoError(t, db.Create(&models.AsicExtract{ReportId: report.ID, Uid: "e1"}).Error)

	got, err := models.GetReport(ctx, db, report.ID, models.ReportDetailAssociations...)
	require.NoError(t, err)
	require.NotNil(t, got.Entity)
	require.Equal(t, name, *got.Entity.Name)
	require.Len(t, got.AsicExtracts, 1)
}

// Package reportapi is the HTTP surface for report purchase and retrieval.
package reportapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bizcheckau/reports_backend/alares"
	"github.com/bizcheckau/reports_backend/config"
	"github.com/bizcheckau/reports_backend/ingest"
	"github.com/bizcheckau/reports_backend/models"
	"github.com/bizcheckau/reports_backend/utils"
	"github.com/bizcheckau/reports_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportCreator is the part of workflow.ReportService the handlers call.
type ReportCreator interface {
	CreateReport(ctx context.Context, input workflow.CreateReportInput) (*workflow.CreateReportResult, error)
	Reingest(ctx context.Context, reportId uint) (*ingest.Outcome, error)
}

type Handler struct {
	DB      *gorm.DB
	Reports ReportCreator
	Logger  *logrus.Logger
}

func (h *Handler) logger() *logrus.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return config.GetLogger()
}

func userId(c *gin.Context) uint {
	id, _ := utils.GetUserIdFromContext(c.Request.Context())
	return id
}

func isAdmin(c *gin.Context) bool {
	admin, _ := utils.GetIsAdminFromContext(c.Request.Context())
	return admin
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return uint(v), true
}

func uintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return nil, false
	}
	id := uint(v)
	return &id, true
}

func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateReport handles POST /api/reports.
func (h *Handler) CreateReport(c *gin.Context) {
	var input workflow.CreateReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	input.UserId = userId(c)

	result, err := h.Reports.CreateReport(c.Request.Context(), input)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnsupportedType), errors.Is(err, workflow.ErrInvalidAbn):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, models.ErrMatterNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, workflow.ErrIdempotencyInProgress), errors.Is(err, workflow.ErrIdempotencyKeyReused):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, workflow.ErrReportTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"success": false, "error": "report creation timed out", "retryable": true})
	default:
		if fe, ok := alares.AsFetchError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "report creation failed", "retryable": fe.Retryable()})
			return
		}
		config.LogError(h.logger(), "reportapi", "CreateReport", "create report", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "report creation failed"})
	}
}

// loadOwnedReport loads a report the caller may see, writing the error response
// itself when it returns nil.
func (h *Handler) loadOwnedReport(c *gin.Context, associations ...string) *models.Report {
	id, ok := uintParam(c, "id")
	if !ok {
		return nil
	}
	ctx := c.Request.Context()
	if !isAdmin(c) {
		owns, err := models.UserOwnsReport(ctx, h.DB, userId(c), id)
		if err != nil {
			config.LogError(h.logger(), "reportapi", "loadOwnedReport", "ownership check", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return nil
		}
		if !owns {
			c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error()})
			return nil
		}
	}
	report, err := models.GetReport(ctx, h.DB, id, associations...)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return nil
		}
		config.LogError(h.logger(), "reportapi", "loadOwnedReport", "load report", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil
	}
	return report
}

// GetReport handles GET /api/reports/:id with the full normalized tree.
func (h *Handler) GetReport(c *gin.Context) {
	report := h.loadOwnedReport(c, models.ReportDetailAssociations...)
	if report == nil {
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportReport handles GET /api/reports/:id/export as an xlsx download.
func (h *Handler) ExportReport(c *gin.Context) {
	report := h.loadOwnedReport(c, models.ReportDetailAssociations...)
	if report == nil {
		return
	}
	f, err := BuildWorkbook(report)
	if err != nil {
		config.LogError(h.logger(), "reportapi", "ExportReport", "build workbook", report.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-%d.xlsx", report.ID))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger().Errorf("write workbook %d: %v", report.ID, err)
	}
}

// ListUserReports handles GET /api/user-reports[?matterId=].
func (h *Handler) ListUserReports(c *gin.Context) {
	matterId, ok := uintQuery(c, "matterId")
	if !ok {
		return
	}
	links, err := models.ListUserReports(c.Request.Context(), h.DB, userId(c), matterId)
	if err != nil {
		config.LogError(h.logger(), "reportapi", "ListUserReports", "list", userId(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": links})
}

func (h *Handler) CreateMatter(c *gin.Context) {
	var input models.NewMatter
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
		return
	}
	matter, err := models.CreateMatter(c.Request.Context(), h.DB, userId(c), input)
	if err != nil {
		config.LogError(h.logger(), "reportapi", "CreateMatter", "create", input, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, matter)
}

func (h *Handler) ListMatters(c *gin.Context) {
	matters, err := models.ListMatters(c.Request.Context(), h.DB, userId(c))
	if err != nil {
		config.LogError(h.logger(), "reportapi", "ListMatters", "list", userId(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matters})
}

// Reingest handles POST /internal/ops/reports/:id/reingest.
func (h *Handler) Reingest(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	outcome, err := h.Reports.Reingest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		config.LogError(h.logger(), "reportapi", "Reingest", "reingest", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{
		"reportId":   id,
		"skipped":    outcome.Skipped,
		"skipReason": outcome.SkipReason,
		"status":     outcome.Status,
		"records":    outcome.Stats.Total(),
		"errors":     len(outcome.Failures),
	}
	if outcome.Run != nil {
		resp["runId"] = outcome.Run.RunId
	}
	c.JSON(http.StatusOK, resp)
}

// IngestionRuns handles GET /internal/ops/reports/:id/ingestion-runs.
func (h *Handler) IngestionRuns(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	runs, err := ingest.ListRuns(ctx, h.DB, id)
	if err == nil {
		var failures []*models.IngestionError
		if failures, err = ingest.ListErrors(ctx, h.DB, id); err == nil {
			c.JSON(http.StatusOK, gin.H{"runs": runs, "errors": failures})
			return
		}
	}
	config.LogError(h.logger(), "reportapi", "IngestionRuns", "list", id, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

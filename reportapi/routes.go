package reportapi

import (
	"github.com/bizcheckau/reports_backend/middlewares"
	"github.com/gin-gonic/gin"
)

// Register mounts every route on r. Auth resolution middlewares are expected
// to run before these.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api", middlewares.RequireUser())
	api.POST("/reports", h.CreateReport)
	api.GET("/reports/:id", h.GetReport)
	api.GET("/reports/:id/export", h.ExportReport)
	api.GET("/user-reports", h.ListUserReports)
	api.POST("/matters", h.CreateMatter)
	api.GET("/matters", h.ListMatters)

	ops := r.Group("/internal/ops", middlewares.RequireUser(), middlewares.RequireAdmin())
	ops.POST("/reports/:id/reingest", h.Reingest)
	ops.GET("/reports/:id/ingestion-runs", h.IngestionRuns)
}

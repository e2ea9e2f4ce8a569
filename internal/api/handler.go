// Package api exposes the HTTP trigger and admin surface. Manual triggers run
// the same operations the scheduler runs; failures are surfaced in the
// response instead of only in the event log.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intelpipeline/internal/usecase"
)

type Handler struct {
	orch  *usecase.Orchestrator
	usage func() any
}

// NewHandler wires the handler. usage may be nil, disabling /v1/usage data.
func NewHandler(orch *usecase.Orchestrator, usage func() any) *Handler {
	return &Handler{orch: orch, usage: usage}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/ops/refresh-intelligence", h.RefreshIntelligence)
		v1.POST("/ops/refresh-companies", h.RefreshCompanies)
		v1.POST("/ops/generate-insight", h.GenerateInsight)
		v1.POST("/ops/generate-profiles", h.GenerateProfiles)

		v1.GET("/status", h.Status)
		v1.GET("/logs", h.Logs)
		v1.GET("/export", h.Export)
		v1.GET("/companies", h.Companies)
		v1.PUT("/companies/:id/status", h.UpdateCompanyStatus)
		v1.GET("/usage", h.Usage)
	}
}

// Health: GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": usecase.Version})
}

// RefreshIntelligence: POST /v1/ops/refresh-intelligence?actor=
func (h *Handler) RefreshIntelligence(c *gin.Context) {
	h.runOperation(c, h.orch.RefreshIntelligence)
}

// RefreshCompanies: POST /v1/ops/refresh-companies?actor=
func (h *Handler) RefreshCompanies(c *gin.Context) {
	h.runOperation(c, h.orch.RefreshCompanies)
}

// GenerateInsight: POST /v1/ops/generate-insight?actor=
func (h *Handler) GenerateInsight(c *gin.Context) {
	h.runOperation(c, h.orch.GenerateInsightPost)
}

// GenerateProfiles: POST /v1/ops/generate-profiles?actor=
func (h *Handler) GenerateProfiles(c *gin.Context) {
	h.runOperation(c, h.orch.GenerateCompanyProfiles)
}

// Status: GET /v1/status
func (h *Handler) Status(c *gin.Context) {
	report, err := h.orch.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// Logs: GET /v1/logs?limit=N
func (h *Handler) Logs(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", "50"))
	logs, err := h.orch.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(logs), "limit": limit},
		"data": logs,
	})
}

// Export: GET /v1/export
func (h *Handler) Export(c *gin.Context) {
	raw, err := h.orch.ExportReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="intelligence-export.json"`)
	c.Data(http.StatusOK, "application/json", raw)
}

// Companies: GET /v1/companies
func (h *Handler) Companies(c *gin.Context) {
	companies, err := h.orch.CompanyList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(companies)},
		"data": companies,
	})
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateCompanyStatus: PUT /v1/companies/:id/status
func (h *Handler) UpdateCompanyStatus(c *gin.Context) {
	id := c.Param("id")

	var req statusUpdateRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	if err := h.orch.UpdateCompanyStatus(c.Request.Context(), id, req.Status, req.Notes, actorOf(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"company_id": id, "status": req.Status},
	})
}

// Usage: GET /v1/usage
func (h *Handler) Usage(c *gin.Context) {
	if h.usage == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "usage tracking is not enabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.usage()})
}

func (h *Handler) runOperation(c *gin.Context, run func(ctx context.Context, actor string) usecase.Outcome) {
	outcome := run(c.Request.Context(), actorOf(c))

	// "Nothing to do" outcomes are not upstream failures.
	status := http.StatusOK
	switch outcome.ErrorReason {
	case "", usecase.ReasonNoData, usecase.ReasonNoRelevant:
	default:
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"meta": gin.H{"success": outcome.Success, "error_reason": outcome.ErrorReason},
		"data": outcome.Data,
	})
}

func actorOf(c *gin.Context) string {
	if actor := c.Query("actor"); actor != "" {
		return actor
	}
	return "manual"
}

// parseLimit bounds the log page size.
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 50
	}
	if l > 1000 {
		return 1000
	}
	return l
}

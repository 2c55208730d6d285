package handler

import (
	"time"

	reportapp "github.com/backoffice/backend/internal/application/report"
	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	BaseHandler
	reports *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Dashboard returns the dashboard summary
func (h *ReportHandler) Dashboard(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	summary, err := h.reports.Dashboard(c.Request.Context(), actor)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, summary)
}

// CashFlow returns ledger movement over a period
func (h *ReportHandler) CashFlow(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	report, err := h.reports.CashFlow(c.Request.Context(), actor, from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// IncomeBySource returns income totals grouped by source over a period
func (h *ReportHandler) IncomeBySource(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	from, to, ok := h.parsePeriod(c)
	if !ok {
		return
	}

	report, err := h.reports.IncomeBySource(c.Request.Context(), actor, from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, report)
}

// parsePeriod reads the from/to query parameters. Defaults to the current
// month start through now.
func (h *ReportHandler) parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.BadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			h.BadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		// Include the whole end day
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		h.BadRequest(c, "'to' must not be before 'from'")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// RegisterRoutes registers reporting routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/dashboard", h.Dashboard)
		reports.GET("/cash-flow", h.CashFlow)
		reports.GET("/income-by-source", h.IncomeBySource)
	}
}

package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ReportHandler handles balance and report endpoints
type ReportHandler struct {
	BaseHandler
	reports *ledgerapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *ledgerapp.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Balances handles GET /balances?period=
func (h *ReportHandler) Balances(c *gin.Context) {
	var query dto.PeriodQuery
	if !h.bindQuery(c, &query) {
		return
	}
	balances, err := h.reports.Balances(c.Request.Context(), query.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"period": query.Period, "balances": balances})
}

// TrialBalance handles GET /reports/trial-balance?period=
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	var query dto.PeriodQuery
	if !h.bindQuery(c, &query) {
		return
	}
	tb, err := h.reports.TrialBalance(c.Request.Context(), query.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tb)
}

// Template handles POST /reports/template
func (h *ReportHandler) Template(c *gin.Context) {
	var req ledgerapp.TemplateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.reports.EvaluateTemplate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

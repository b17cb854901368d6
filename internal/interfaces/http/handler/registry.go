package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// RegistryHandler maintains the chart of accounts, dimensions, budgets,
// audit rules, companies and stored documents of a ledger
type RegistryHandler struct {
	BaseHandler
	registry *ledgerapp.RegistryService
}

// NewRegistryHandler creates a new RegistryHandler
func NewRegistryHandler(registry *ledgerapp.RegistryService) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

// ListAccounts handles GET /accounts
func (h *RegistryHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.registry.ListAccounts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"accounts": accounts})
}

// AddAccount handles POST /accounts
func (h *RegistryHandler) AddAccount(c *gin.Context) {
	var req ledgerapp.AddAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.registry.AddAccount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// DisableAccount handles POST /accounts/:code/disable
func (h *RegistryHandler) DisableAccount(c *gin.Context) {
	account, err := h.registry.DisableAccount(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// AddDimension handles POST /dimensions
func (h *RegistryHandler) AddDimension(c *gin.Context) {
	var req ledgerapp.AddDimensionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	dim, err := h.registry.AddDimension(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dim)
}

// SetBudget handles PUT /budgets
func (h *RegistryHandler) SetBudget(c *gin.Context) {
	var req ledgerapp.SetBudgetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	budget, err := h.registry.SetBudget(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, budget)
}

// AddAuditRule handles PUT /audit-rules
func (h *RegistryHandler) AddAuditRule(c *gin.Context) {
	var req ledgerapp.AddAuditRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.registry.AddAuditRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// RegisterCompany handles PUT /companies
func (h *RegistryHandler) RegisterCompany(c *gin.Context) {
	var req ledgerapp.RegisterCompanyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	company, err := h.registry.RegisterCompany(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// SaveConsolidationRule handles PUT /consolidation-rules
func (h *RegistryHandler) SaveConsolidationRule(c *gin.Context) {
	var req ledgerapp.SaveDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rule, err := h.registry.SaveConsolidationRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// SaveReportTemplate handles PUT /report-templates
func (h *RegistryHandler) SaveReportTemplate(c *gin.Context) {
	var req ledgerapp.SaveDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tmpl, err := h.registry.SaveReportTemplate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tmpl)
}

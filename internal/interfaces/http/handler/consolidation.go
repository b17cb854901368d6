package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// ConsolidationHandler runs group consolidations
type ConsolidationHandler struct {
	BaseHandler
	consolidation *ledgerapp.ConsolidationService
}

// NewConsolidationHandler creates a new ConsolidationHandler
func NewConsolidationHandler(consolidation *ledgerapp.ConsolidationService) *ConsolidationHandler {
	return &ConsolidationHandler{consolidation: consolidation}
}

// Consolidate handles POST /consolidations
func (h *ConsolidationHandler) Consolidate(c *gin.Context) {
	var req ledgerapp.ConsolidateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.consolidation.Consolidate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

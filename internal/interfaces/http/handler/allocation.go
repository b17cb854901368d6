package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// AllocationHandler runs step-method cost allocations
type AllocationHandler struct {
	BaseHandler
	allocation *ledgerapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocation *ledgerapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocation: allocation}
}

// Allocate handles POST /allocations
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req ledgerapp.AllocateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.allocation.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

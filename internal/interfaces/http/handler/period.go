package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PeriodHandler handles period close, reopen and adjustment endpoints
type PeriodHandler struct {
	BaseHandler
	periods *ledgerapp.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *ledgerapp.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// Close handles POST /periods/:period/close
func (h *PeriodHandler) Close(c *gin.Context) {
	result, err := h.periods.Close(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reopen handles POST /periods/:period/reopen
func (h *PeriodHandler) Reopen(c *gin.Context) {
	result, err := h.periods.Reopen(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Adjustment handles POST /periods/:period/adjustment, which switches
// adjustment mode on unless the body says {"enabled": false}
func (h *PeriodHandler) Adjustment(c *gin.Context) {
	var req dto.AdjustmentModeRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.periods.SetAdjustment(c.Request.Context(), c.Param("period"), req.IsEnabled())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PostAdjustment handles POST /periods/:period/adjustments. The voucher
// date must fall inside the period in the path.
func (h *PeriodHandler) PostAdjustment(c *gin.Context) {
	var req dto.CreateVoucherRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	period := c.Param("period")
	if ledger.PeriodOf(cmd.Date) != period {
		h.HandleError(c, shared.NewDomainError(shared.CodeInvalidInput, "voucher date is outside period "+period))
		return
	}

	result, err := h.periods.PostAdjustment(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// FxHandler handles exchange rate and revaluation endpoints
type FxHandler struct {
	BaseHandler
	fx *ledgerapp.FxService
}

// NewFxHandler creates a new FxHandler
func NewFxHandler(fx *ledgerapp.FxService) *FxHandler {
	return &FxHandler{fx: fx}
}

// AddRate handles POST /fx/rates
func (h *FxHandler) AddRate(c *gin.Context) {
	var req dto.AddRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	rate, err := h.fx.AddRate(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rate)
}

// Revalue handles POST /fx/revalue
func (h *FxHandler) Revalue(c *gin.Context) {
	var req dto.PeriodQuery
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.fx.Revalue(c.Request.Context(), req.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

package handler

import (
	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// VoucherHandler handles voucher lifecycle endpoints
type VoucherHandler struct {
	BaseHandler
	vouchers *ledgerapp.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler
func NewVoucherHandler(vouchers *ledgerapp.VoucherService) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers}
}

// Create handles POST /vouchers
func (h *VoucherHandler) Create(c *gin.Context) {
	var req dto.CreateVoucherRequest
	if !h.bindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.vouchers.Create(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /vouchers/:id. Vouchers of another ledger are reported
// as not found.
func (h *VoucherHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	voucher, err := h.vouchers.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, voucher)
}

// List handles GET /vouchers
func (h *VoucherHandler) List(c *gin.Context) {
	var query dto.ListVouchersQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page, err := h.vouchers.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Review handles POST /vouchers/:id/review
func (h *VoucherHandler) Review(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.vouchers.Review(c.Request.Context(), id)
	h.respond(c, result, err)
}

// Revert handles POST /vouchers/:id/revert
func (h *VoucherHandler) Revert(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.vouchers.Revert(c.Request.Context(), id)
	h.respond(c, result, err)
}

// Confirm handles POST /vouchers/:id/confirm
func (h *VoucherHandler) Confirm(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.vouchers.Confirm(c.Request.Context(), id)
	h.respond(c, result, err)
}

// Void handles POST /vouchers/:id/void
func (h *VoucherHandler) Void(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidVoucherRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	result, err := h.vouchers.Void(c.Request.Context(), id, req.Reason)
	h.respond(c, result, err)
}

// Delete handles DELETE /vouchers/:id. Only drafts can be deleted.
func (h *VoucherHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.vouchers.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Archive handles POST /vouchers/archive
func (h *VoucherHandler) Archive(c *gin.Context) {
	var req dto.ArchiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.vouchers.Archive(c.Request.Context(), req.BeforePeriod)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Decide handles POST /vouchers/:id/approval
func (h *VoucherHandler) Decide(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req dto.DecideApprovalRequest
	if !h.bindJSON(c, &req) {
		return
	}
	approval, err := h.vouchers.Decide(c.Request.Context(), id, *req.Approve, req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, approval)
}

func (h *VoucherHandler) respond(c *gin.Context, result *ledgerapp.VoucherResult, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

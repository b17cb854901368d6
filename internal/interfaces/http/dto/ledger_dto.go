package dto

import (
	"strings"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// dateLayouts are accepted for calendar dates, most specific last
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate reads a calendar date as YYYY-MM-DD or RFC 3339
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, shared.NewDomainError(shared.CodeInvalidInput, field+" must be a date (YYYY-MM-DD)").
		WithDetails(map[string]any{"field": field, "value": value})
}

// IssueTokenRequest asks for a bearer token scoped to one ledger
type IssueTokenRequest struct {
	TenantID string `json:"tenant_id" validate:"required,max=64"`
	OrgID    string `json:"org_id" validate:"required,max=64"`
	Subject  string `json:"subject,omitempty" validate:"max=128"`
}

// VoucherHeader is the header part of a voucher creation request
type VoucherHeader struct {
	Date        string           `json:"date" validate:"required"`
	EntryType   ledger.EntryType `json:"entry_type,omitempty" validate:"omitempty,oneof=normal adjustment"`
	Description string           `json:"description,omitempty"`
}

// CreateVoucherRequest is the body of POST /vouchers
type CreateVoucherRequest struct {
	Voucher     VoucherHeader          `json:"voucher"`
	Entries     []ledgerapp.EntryInput `json:"entries" validate:"required,min=1,dive"`
	Status      ledger.VoucherStatus   `json:"status,omitempty" validate:"omitempty,oneof=draft reviewed confirmed"`
	AutoConfirm bool                   `json:"auto_confirm,omitempty"`
}

// ToCommand converts the body into the service request
func (r CreateVoucherRequest) ToCommand() (ledgerapp.CreateVoucherRequest, error) {
	date, err := ParseDate("voucher.date", r.Voucher.Date)
	if err != nil {
		return ledgerapp.CreateVoucherRequest{}, err
	}
	return ledgerapp.CreateVoucherRequest{
		Date:        date,
		EntryType:   r.Voucher.EntryType,
		Description: r.Voucher.Description,
		Entries:     r.Entries,
		Status:      r.Status,
		AutoConfirm: r.AutoConfirm,
	}, nil
}

// VoidVoucherRequest is the body of POST /vouchers/:id/void
type VoidVoucherRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ArchiveRequest is the body of POST /vouchers/archive
type ArchiveRequest struct {
	BeforePeriod string `json:"before_period" validate:"required,len=7"`
}

// DecideApprovalRequest approves or rejects a pending approval
type DecideApprovalRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Comment string `json:"comment,omitempty" validate:"max=500"`
}

// AdjustmentModeRequest switches a period into or out of adjustment mode.
// An empty body enables it.
type AdjustmentModeRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// IsEnabled reports the requested mode
func (r AdjustmentModeRequest) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ListVouchersQuery is the query of GET /vouchers
type ListVouchersQuery struct {
	ListRequest
	Period          string               `form:"period" validate:"omitempty,len=7"`
	Status          ledger.VoucherStatus `form:"status" validate:"omitempty,oneof=draft reviewed confirmed voided archived"`
	IncludeArchived bool                 `form:"include_archived"`
}

// ToFilter converts the query into a repository filter
func (q ListVouchersQuery) ToFilter() ledger.VoucherFilter {
	filter := shared.DefaultFilter()
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	filter.OrderBy = q.OrderBy
	filter.OrderDir = q.OrderDir
	return ledger.VoucherFilter{
		Filter:          filter,
		Period:          q.Period,
		Status:          q.Status,
		IncludeArchived: q.IncludeArchived,
	}
}

// AddRateRequest is the body of POST /fx/rates
type AddRateRequest struct {
	BaseCurrency  string          `json:"base_currency" validate:"required,len=3"`
	QuoteCurrency string          `json:"quote_currency" validate:"required,len=3"`
	RateType      ledger.RateType `json:"rate_type,omitempty" validate:"omitempty,oneof=spot closing average historical"`
	RateDate      string          `json:"rate_date" validate:"required"`
	Rate          decimal.Decimal `json:"rate"`
}

// ToCommand converts the body into the service request
func (r AddRateRequest) ToCommand() (ledgerapp.AddRateRequest, error) {
	date, err := ParseDate("rate_date", r.RateDate)
	if err != nil {
		return ledgerapp.AddRateRequest{}, err
	}
	return ledgerapp.AddRateRequest{
		BaseCurrency:  r.BaseCurrency,
		QuoteCurrency: r.QuoteCurrency,
		RateType:      r.RateType,
		RateDate:      date,
		Rate:          r.Rate,
	}, nil
}

package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypeVoucher = "voucher"
	AggregateTypePeriod  = "period"
)

// Event type constants
const (
	EventTypeVoucherConfirmed = "voucher.confirmed"
	EventTypeVoucherVoided    = "voucher.voided"
	EventTypePeriodClosed     = "period.closed"
	EventTypePeriodReopened   = "period.reopened"
)

// VoucherConfirmedEvent is emitted when a voucher reaches the balance ledger
type VoucherConfirmedEvent struct {
	shared.BaseDomainEvent
	VoucherNo   string          `json:"voucher_no"`
	Period      string          `json:"period"`
	Source      VoucherSource   `json:"source"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// NewVoucherConfirmedEvent creates a new VoucherConfirmedEvent
func NewVoucherConfirmedEvent(v *Voucher, warnings []string) *VoucherConfirmedEvent {
	return &VoucherConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoucherConfirmed, AggregateTypeVoucher, v.ID, v.Scope()),
		VoucherNo:       v.VoucherNo,
		Period:          v.Period,
		Source:          v.Source,
		TotalDebit:      v.TotalDebit,
		TotalCredit:     v.TotalCredit,
		Warnings:        warnings,
	}
}

// VoucherVoidedEvent is emitted when a confirmed voucher is reversed
type VoucherVoidedEvent struct {
	shared.BaseDomainEvent
	VoucherNo       string `json:"voucher_no"`
	MirrorVoucherNo string `json:"mirror_voucher_no"`
	Reason          string `json:"reason"`
}

// NewVoucherVoidedEvent creates a new VoucherVoidedEvent
func NewVoucherVoidedEvent(original, mirror *Voucher) *VoucherVoidedEvent {
	return &VoucherVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVoucherVoided, AggregateTypeVoucher, original.ID, original.Scope()),
		VoucherNo:       original.VoucherNo,
		MirrorVoucherNo: mirror.VoucherNo,
		Reason:          original.VoidReason,
	}
}

// PeriodClosedEvent is emitted after a successful period close
type PeriodClosedEvent struct {
	shared.BaseDomainEvent
	Period    string          `json:"period"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// NewPeriodClosedEvent creates a new PeriodClosedEvent
func NewPeriodClosedEvent(p *Period, netIncome decimal.Decimal) *PeriodClosedEvent {
	return &PeriodClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodClosed, AggregateTypePeriod, p.ID, p.Scope()),
		Period:          p.Period,
		NetIncome:       netIncome,
	}
}

// PeriodReopenedEvent is emitted when a closed period is opened again
type PeriodReopenedEvent struct {
	shared.BaseDomainEvent
	Period string `json:"period"`
}

// NewPeriodReopenedEvent creates a new PeriodReopenedEvent
func NewPeriodReopenedEvent(p *Period) *PeriodReopenedEvent {
	return &PeriodReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePeriodReopened, AggregateTypePeriod, p.ID, p.Scope()),
		Period:          p.Period,
	}
}

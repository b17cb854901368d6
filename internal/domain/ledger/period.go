package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const periodLayout = "2006-01"

// PeriodOf returns the YYYY-MM period a date falls in
func PeriodOf(date time.Time) string {
	return date.Format(periodLayout)
}

// ParsePeriod validates a YYYY-MM period and returns its first day (UTC)
func ParsePeriod(period string) (time.Time, error) {
	start, err := time.Parse(periodLayout, period)
	if err != nil {
		return time.Time{}, shared.NewDomainError(shared.CodeInvalidInput, "period must be formatted YYYY-MM: "+period)
	}
	return start, nil
}

// PeriodStart returns the first day of period. period must be valid.
func PeriodStart(period string) time.Time {
	start, _ := time.Parse(periodLayout, period)
	return start
}

// PeriodEnd returns the last day of period
func PeriodEnd(period string) time.Time {
	return PeriodStart(period).AddDate(0, 1, -1)
}

// NextPeriod returns the period following period
func NextPeriod(period string) string {
	return PeriodStart(period).AddDate(0, 1, 0).Format(periodLayout)
}

// PeriodStatus is the lifecycle state of an accounting period
type PeriodStatus string

const (
	PeriodStatusOpen       PeriodStatus = "open"
	PeriodStatusClosed     PeriodStatus = "closed"
	PeriodStatusAdjustment PeriodStatus = "adjustment"
)

// Period is one month of one ledger
type Period struct {
	shared.ScopedEntity
	Period            string       `gorm:"type:varchar(7);not null;index" json:"period"`
	Status            PeriodStatus `gorm:"type:varchar(16);not null" json:"status"`
	ClosingVoucherID  *uuid.UUID   `gorm:"type:uuid" json:"closing_voucher_id,omitempty"`
	TransferVoucherID *uuid.UUID   `gorm:"type:uuid" json:"transfer_voucher_id,omitempty"`
	ClosedAt          *time.Time   `json:"closed_at,omitempty"`
	ReopenedAt        *time.Time   `json:"reopened_at,omitempty"`
}

// TableName returns the table name for GORM
func (Period) TableName() string {
	return "ledger_periods"
}

// NewPeriod creates an open period
func NewPeriod(scope shared.Scope, period string) (*Period, error) {
	if _, err := ParsePeriod(period); err != nil {
		return nil, err
	}
	return &Period{
		ScopedEntity: shared.NewScopedEntity(scope),
		Period:       period,
		Status:       PeriodStatusOpen,
	}, nil
}

// IsClosed reports whether the period is closed
func (p *Period) IsClosed() bool {
	return p.Status == PeriodStatusClosed
}

// CheckPosting reports whether a voucher of entryType may be posted into the period
func (p *Period) CheckPosting(entryType EntryType) error {
	switch p.Status {
	case PeriodStatusClosed:
		return shared.NewDomainError(shared.CodePeriodClosed, "period "+p.Period+" is closed")
	case PeriodStatusAdjustment:
		if entryType != EntryTypeAdjustment {
			return shared.NewDomainError(shared.CodePeriodAdjustmentOnly, "period "+p.Period+" only accepts adjustment entries")
		}
	}
	return nil
}

// Close marks the period closed, recording the generated vouchers
func (p *Period) Close(closingVoucherID, transferVoucherID *uuid.UUID, now time.Time) error {
	if p.Status == PeriodStatusClosed {
		return shared.NewDomainError(shared.CodePeriodAlreadyClosed, "period "+p.Period+" is already closed")
	}
	p.Status = PeriodStatusClosed
	p.ClosingVoucherID = closingVoucherID
	p.TransferVoucherID = transferVoucherID
	p.ClosedAt = &now
	p.Touch(now)
	return nil
}

// Reopen marks a closed period open again. Balances and the closing vouchers are kept.
func (p *Period) Reopen(now time.Time) error {
	if p.Status != PeriodStatusClosed {
		return shared.NewDomainError(shared.CodePeriodNotClosed, "period "+p.Period+" is not closed")
	}
	p.Status = PeriodStatusOpen
	p.ReopenedAt = &now
	p.Touch(now)
	return nil
}

// SetAdjustment toggles the adjustment-only sub-state of an open period
func (p *Period) SetAdjustment(enabled bool, now time.Time) error {
	if p.Status == PeriodStatusClosed {
		return shared.NewDomainError(shared.CodePeriodClosed, "period "+p.Period+" is closed")
	}
	if enabled {
		p.Status = PeriodStatusAdjustment
	} else {
		p.Status = PeriodStatusOpen
	}
	p.Touch(now)
	return nil
}

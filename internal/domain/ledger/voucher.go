package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherStatus is the lifecycle state of a voucher
type VoucherStatus string

const (
	VoucherStatusDraft     VoucherStatus = "draft"
	VoucherStatusReviewed  VoucherStatus = "reviewed"
	VoucherStatusConfirmed VoucherStatus = "confirmed"
	VoucherStatusVoided    VoucherStatus = "voided"
	VoucherStatusArchived  VoucherStatus = "archived"
)

// PostedStatuses are the states whose entries have reached the balance ledger
var PostedStatuses = []VoucherStatus{
	VoucherStatusConfirmed,
	VoucherStatusVoided,
	VoucherStatusArchived,
}

// EntryType distinguishes regular postings from period adjustments
type EntryType string

const (
	EntryTypeNormal     EntryType = "normal"
	EntryTypeAdjustment EntryType = "adjustment"
)

// VoucherSource records what produced a voucher
type VoucherSource string

const (
	SourceManual       VoucherSource = "manual"
	SourceClosing      VoucherSource = "closing"
	SourceTransfer     VoucherSource = "transfer"
	SourceCarryForward VoucherSource = "carry_forward"
	SourceRevaluation  VoucherSource = "revaluation"
	SourceReversal     VoucherSource = "reversal"
	SourceAllocation   VoucherSource = "allocation"
)

// BalanceTolerance is the largest debit/credit difference still treated as balanced
var BalanceTolerance = decimal.NewFromFloat(0.01)

// Voucher is a journal-entry document
type Voucher struct {
	shared.ScopedEntity
	VoucherNo        string          `gorm:"type:varchar(32);not null;index" json:"voucher_no"`
	Date             time.Time       `gorm:"not null" json:"date"`
	Period           string          `gorm:"type:varchar(7);not null;index" json:"period"`
	Status           VoucherStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	EntryType        EntryType       `gorm:"type:varchar(16);not null;default:'normal'" json:"entry_type"`
	Source           VoucherSource   `gorm:"type:varchar(16);not null;default:'manual'" json:"source"`
	Description      string          `gorm:"type:text" json:"description"`
	TotalDebit       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_debit"`
	TotalCredit      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_credit"`
	CreatedBy        string          `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	ArchivedAt       *time.Time      `json:"archived_at,omitempty"`
	VoidReason       string          `gorm:"type:text" json:"void_reason,omitempty"`
	ReversalOf       *uuid.UUID      `gorm:"type:uuid" json:"reversal_of,omitempty"`
	ReversedBy       *uuid.UUID      `gorm:"type:uuid" json:"reversed_by,omitempty"`
	CarriedForwardTo *uuid.UUID      `gorm:"type:uuid" json:"carried_forward_to,omitempty"`
	Entries          []VoucherEntry  `gorm:"foreignKey:VoucherID" json:"entries"`
}

// TableName returns the table name for GORM
func (Voucher) TableName() string {
	return "ledger_vouchers"
}

// VoucherEntry is one normalized line of a voucher, amounts in the ledger's base currency
type VoucherEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"voucher_id"`
	LineNo        int             `gorm:"not null" json:"line_no"`
	AccountCode   string          `gorm:"type:varchar(32);not null;index" json:"account_code"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	DebitAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"debit_amount"`
	CreditAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_amount"`
	CurrencyCode  string          `gorm:"type:varchar(3)" json:"currency_code,omitempty"`
	FxRate        decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"fx_rate"`
	ForeignDebit  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"foreign_debit"`
	ForeignCredit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"foreign_credit"`
	DimensionKey
}

// TableName returns the table name for GORM
func (VoucherEntry) TableName() string {
	return "ledger_voucher_entries"
}

// IsForeign reports whether the line carries a foreign-currency amount
func (e *VoucherEntry) IsForeign() bool {
	return e.CurrencyCode != "" && (!e.ForeignDebit.IsZero() || !e.ForeignCredit.IsZero())
}

// IsTwoSided reports whether both sides of the line are nonzero
func (e *VoucherEntry) IsTwoSided() bool {
	return !e.DebitAmount.IsZero() && !e.CreditAmount.IsZero()
}

// Mirror returns a copy of the line with debit and credit swapped
func (e *VoucherEntry) Mirror(voucherID uuid.UUID) VoucherEntry {
	m := *e
	m.ID = uuid.New()
	m.VoucherID = voucherID
	m.DebitAmount, m.CreditAmount = e.CreditAmount, e.DebitAmount
	m.ForeignDebit, m.ForeignCredit = e.ForeignCredit, e.ForeignDebit
	return m
}

// NewVoucher creates a draft voucher from normalized entries. The whole voucher is
// rejected when debits and credits differ by the tolerance or more.
func NewVoucher(scope shared.Scope, voucherNo string, date time.Time, entryType EntryType, source VoucherSource, description string, entries []VoucherEntry) (*Voucher, error) {
	if len(entries) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "voucher must have at least one entry")
	}
	if entryType == "" {
		entryType = EntryTypeNormal
	}
	if entryType != EntryTypeNormal && entryType != EntryTypeAdjustment {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown entry type: "+string(entryType))
	}
	if source == "" {
		source = SourceManual
	}

	v := &Voucher{
		ScopedEntity: shared.NewScopedEntity(scope),
		VoucherNo:    voucherNo,
		Date:         date,
		Period:       PeriodOf(date),
		Status:       VoucherStatusDraft,
		EntryType:    entryType,
		Source:       source,
		Description:  description,
	}
	v.Entries = make([]VoucherEntry, len(entries))
	for i, entry := range entries {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.VoucherID = v.ID
		entry.LineNo = i + 1
		v.Entries[i] = entry
	}
	v.recalculateTotals()

	if !v.IsBalanced() {
		return nil, shared.NewDomainError(shared.CodeNotBalanced, "total debit does not equal total credit").
			WithDetails(map[string]any{
				"total_debit":  v.TotalDebit.StringFixed(2),
				"total_credit": v.TotalCredit.StringFixed(2),
			})
	}
	return v, nil
}

func (v *Voucher) recalculateTotals() {
	v.TotalDebit = decimal.Zero
	v.TotalCredit = decimal.Zero
	for _, entry := range v.Entries {
		v.TotalDebit = v.TotalDebit.Add(entry.DebitAmount)
		v.TotalCredit = v.TotalCredit.Add(entry.CreditAmount)
	}
}

// IsBalanced reports whether debits equal credits within tolerance
func (v *Voucher) IsBalanced() bool {
	return v.TotalDebit.Sub(v.TotalCredit).Abs().LessThan(BalanceTolerance)
}

// Amount returns the larger of the two totals
func (v *Voucher) Amount() decimal.Decimal {
	return decimal.Max(v.TotalDebit, v.TotalCredit)
}

// IsPosted reports whether the voucher's entries have reached the balance ledger
func (v *Voucher) IsPosted() bool {
	for _, s := range PostedStatuses {
		if v.Status == s {
			return true
		}
	}
	return false
}

// Review moves a draft to reviewed
func (v *Voucher) Review(now time.Time) error {
	if v.Status != VoucherStatusDraft {
		return shared.NewDomainError(shared.CodeVoucherNotDraft, "only draft vouchers can be reviewed")
	}
	v.Status = VoucherStatusReviewed
	v.ReviewedAt = &now
	v.Touch(now)
	return nil
}

// RevertToDraft moves a reviewed voucher back to draft
func (v *Voucher) RevertToDraft(now time.Time) error {
	if v.Status != VoucherStatusReviewed {
		return shared.NewDomainError(shared.CodeVoucherNotReviewed, "only reviewed vouchers can be reverted to draft")
	}
	v.Status = VoucherStatusDraft
	v.ReviewedAt = nil
	v.Touch(now)
	return nil
}

// Confirm moves a reviewed voucher to confirmed
func (v *Voucher) Confirm(now time.Time) error {
	if v.Status != VoucherStatusReviewed {
		return shared.NewDomainError(shared.CodeVoucherNotReviewed, "only reviewed vouchers can be confirmed")
	}
	if !v.IsBalanced() {
		return shared.NewDomainError(shared.CodeNotBalanced, "total debit does not equal total credit")
	}
	v.Status = VoucherStatusConfirmed
	v.ConfirmedAt = &now
	v.Touch(now)
	return nil
}

// ConfirmSystem posts a system-generated voucher straight from draft
func (v *Voucher) ConfirmSystem(now time.Time) error {
	if v.Status != VoucherStatusDraft {
		return shared.NewDomainError(shared.CodeVoucherNotDraft, "system vouchers are confirmed from draft")
	}
	v.Status = VoucherStatusReviewed
	v.ReviewedAt = &now
	return v.Confirm(now)
}

// CanDelete reports whether the voucher may be physically removed
func (v *Voucher) CanDelete() error {
	if v.Status != VoucherStatusDraft {
		return shared.NewDomainError(shared.CodeVoucherNotDraft, "only draft vouchers can be deleted")
	}
	return nil
}

// BuildMirror creates the reversing draft for a confirmed voucher
func (v *Voucher) BuildMirror(voucherNo string, description string) (*Voucher, error) {
	if v.Status != VoucherStatusConfirmed {
		return nil, shared.NewDomainError(shared.CodeVoidConfirmed, "only confirmed vouchers can be voided")
	}
	mirror := &Voucher{
		ScopedEntity: shared.NewScopedEntity(v.Scope()),
		VoucherNo:    voucherNo,
		Date:         v.Date,
		Period:       v.Period,
		Status:       VoucherStatusDraft,
		EntryType:    v.EntryType,
		Source:       SourceReversal,
		Description:  description,
		ReversalOf:   &v.ID,
	}
	mirror.Entries = make([]VoucherEntry, len(v.Entries))
	for i := range v.Entries {
		mirror.Entries[i] = v.Entries[i].Mirror(mirror.ID)
	}
	mirror.recalculateTotals()
	return mirror, nil
}

// MarkVoided records the void pairing on the original voucher
func (v *Voucher) MarkVoided(reason string, mirrorID uuid.UUID, now time.Time) error {
	if v.Status != VoucherStatusConfirmed {
		return shared.NewDomainError(shared.CodeVoidConfirmed, "only confirmed vouchers can be voided")
	}
	v.Status = VoucherStatusVoided
	v.VoidReason = reason
	v.ReversedBy = &mirrorID
	v.VoidedAt = &now
	v.Touch(now)
	return nil
}

// Archive hides a confirmed voucher from default listings
func (v *Voucher) Archive(now time.Time) error {
	if v.Status != VoucherStatusConfirmed {
		return shared.NewDomainError(shared.CodeInvalidInput, "only confirmed vouchers can be archived")
	}
	v.Status = VoucherStatusArchived
	v.ArchivedAt = &now
	v.Touch(now)
	return nil
}

// ForeignLineCount returns the number of foreign-currency lines
func (v *Voucher) ForeignLineCount() int {
	n := 0
	for i := range v.Entries {
		if v.Entries[i].IsForeign() {
			n++
		}
	}
	return n
}

// MaxLineAmount returns the largest single-side amount across lines
func (v *Voucher) MaxLineAmount() decimal.Decimal {
	maxAmount := decimal.Zero
	for _, e := range v.Entries {
		maxAmount = decimal.Max(maxAmount, e.DebitAmount, e.CreditAmount)
	}
	return maxAmount
}

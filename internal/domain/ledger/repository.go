package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Finder methods return (nil, nil) when no row matches.

// AccountRepository persists the chart of accounts
type AccountRepository interface {
	FindByCode(ctx context.Context, scope shared.Scope, code string) (*Account, error)
	FindByName(ctx context.Context, scope shared.Scope, name string) (*Account, error)
	FindAll(ctx context.Context, scope shared.Scope) ([]Account, error)
	Save(ctx context.Context, account *Account) error
}

// DimensionRepository persists dimension tags
type DimensionRepository interface {
	FindByCode(ctx context.Context, scope shared.Scope, dimType DimensionType, code string) (*Dimension, error)
	FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*Dimension, error)
	FindAll(ctx context.Context, scope shared.Scope, dimType DimensionType) ([]Dimension, error)
	Save(ctx context.Context, dimension *Dimension) error
}

// VoucherFilter narrows voucher listings
type VoucherFilter struct {
	shared.Filter
	Period          string
	Status          VoucherStatus
	IncludeArchived bool
}

// EntryQuery selects posted voucher lines
type EntryQuery struct {
	FromPeriod  string // inclusive, empty for no lower bound
	ToPeriod    string // inclusive
	ForeignOnly bool
}

// PostedEntry is a voucher line joined with its voucher header
type PostedEntry struct {
	VoucherEntry
	VoucherNo string        `json:"voucher_no"`
	Period    string        `json:"period"`
	Source    VoucherSource `json:"source"`
	Status    VoucherStatus `json:"status"`
}

// VoucherRepository persists vouchers with their entries
type VoucherRepository interface {
	// FindByID loads a voucher with entries regardless of scope; callers check ownership.
	FindByID(ctx context.Context, id uuid.UUID) (*Voucher, error)
	List(ctx context.Context, scope shared.Scope, filter VoucherFilter) ([]Voucher, int64, error)
	Create(ctx context.Context, voucher *Voucher) error
	// Update writes header fields only; entries are immutable once created.
	Update(ctx context.Context, voucher *Voucher) error
	Delete(ctx context.Context, voucher *Voucher) error
	CountUnposted(ctx context.Context, scope shared.Scope, period string) (int64, error)
	LastVoucherNo(ctx context.Context, scope shared.Scope, prefix string) (string, error)
	FindArchivable(ctx context.Context, scope shared.Scope, beforePeriod string) ([]Voucher, error)
	FindPostedEntries(ctx context.Context, scope shared.Scope, query EntryQuery) ([]PostedEntry, error)
}

// BalanceRepository persists running balances
type BalanceRepository interface {
	// FindForUpdate loads a row and locks it for the rest of the transaction.
	FindForUpdate(ctx context.Context, scope shared.Scope, key BalanceKey) (*Balance, error)
	// FindLatestBefore returns the same account/dimension row of the nearest earlier period.
	FindLatestBefore(ctx context.Context, scope shared.Scope, key BalanceKey) (*Balance, error)
	// FindLater returns the same account/dimension rows of later periods, oldest first.
	FindLater(ctx context.Context, scope shared.Scope, key BalanceKey) ([]Balance, error)
	FindByPeriod(ctx context.Context, scope shared.Scope, period string) ([]Balance, error)
	// FindAsOf returns, per account/dimension series, the latest row at or before period.
	FindAsOf(ctx context.Context, scope shared.Scope, period string) ([]Balance, error)
	Save(ctx context.Context, balance *Balance) error
}

// PeriodRepository persists accounting periods
type PeriodRepository interface {
	Find(ctx context.Context, scope shared.Scope, period string) (*Period, error)
	FindAll(ctx context.Context, scope shared.Scope) ([]Period, error)
	Save(ctx context.Context, period *Period) error
}

// ApprovalRepository persists approvals
type ApprovalRepository interface {
	FindByTarget(ctx context.Context, scope shared.Scope, targetType string, targetID uuid.UUID) (*Approval, error)
	Save(ctx context.Context, approval *Approval) error
}

// AuditLogRepository appends audit entries; it offers no update or delete
type AuditLogRepository interface {
	Append(ctx context.Context, entry *AuditLogEntry) error
	FindByTarget(ctx context.Context, targetType, targetID string) ([]AuditLogEntry, error)
}

// NotificationRepository is the outbox
type NotificationRepository interface {
	Append(ctx context.Context, event *shared.NotificationEvent) error
	FindPending(ctx context.Context, limit int) ([]shared.NotificationEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, now time.Time) error
}

// FxRateRepository persists exchange rates
type FxRateRepository interface {
	// FindLatest returns the most recent rate with rate_date <= asOf.
	FindLatest(ctx context.Context, scope shared.Scope, base, quote string, rateType RateType, asOf time.Time) (*FxRate, error)
	Save(ctx context.Context, rate *FxRate) error
}

// BudgetRepository persists budget ceilings
type BudgetRepository interface {
	Find(ctx context.Context, scope shared.Scope, period string, dimType DimensionType, dimCode string) (*Budget, error)
	Save(ctx context.Context, budget *Budget) error
}

// AuditRuleRepository persists audit rules
type AuditRuleRepository interface {
	FindByCode(ctx context.Context, scope shared.Scope, code string) (*AuditRule, error)
	FindEnabled(ctx context.Context, scope shared.Scope) ([]AuditRule, error)
	Save(ctx context.Context, rule *AuditRule) error
}

// CompanyRepository persists consolidation companies
type CompanyRepository interface {
	FindByCode(ctx context.Context, scope shared.Scope, code string) (*Company, error)
	FindByLedger(ctx context.Context, ledgerScope shared.Scope) (*Company, error)
	Save(ctx context.Context, company *Company) error
}

// DocumentRepository persists named rule and template documents
type DocumentRepository interface {
	FindRule(ctx context.Context, scope shared.Scope, name string) (*ConsolidationRuleRecord, error)
	SaveRule(ctx context.Context, record *ConsolidationRuleRecord) error
	FindTemplate(ctx context.Context, scope shared.Scope, name string) (*ReportTemplateRecord, error)
	SaveTemplate(ctx context.Context, record *ReportTemplateRecord) error
}

// Repositories exposes every repository bound to one transaction
type Repositories interface {
	Accounts() AccountRepository
	Dimensions() DimensionRepository
	Vouchers() VoucherRepository
	Balances() BalanceRepository
	Periods() PeriodRepository
	Approvals() ApprovalRepository
	AuditLogs() AuditLogRepository
	Notifications() NotificationRepository
	FxRates() FxRateRepository
	Budgets() BudgetRepository
	AuditRules() AuditRuleRepository
	Companies() CompanyRepository
	Documents() DocumentRepository
}

// UnitOfWork runs fn inside one transaction. Any error returned by fn rolls
// back every write made through repos.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

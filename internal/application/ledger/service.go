package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// Option configures a service
type Option func(*base)

// WithMetrics records ledger activity on m
func WithMetrics(m *telemetry.LedgerMetrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// Services bundles the ledger services built over one unit of work
type Services struct {
	Vouchers      *VoucherService
	Periods       *PeriodService
	Reports       *ReportService
	Fx            *FxService
	Registry      *RegistryService
	Consolidation *ConsolidationService
	Allocation    *AllocationService
}

// NewServices creates every ledger service with the same settings and options
func NewServices(uow ledger.UnitOfWork, settings Settings, opts ...Option) *Services {
	return &Services{
		Vouchers:      NewVoucherService(uow, settings, opts...),
		Periods:       NewPeriodService(uow, settings, opts...),
		Reports:       NewReportService(uow, settings, opts...),
		Fx:            NewFxService(uow, settings, opts...),
		Registry:      NewRegistryService(uow, settings, opts...),
		Consolidation: NewConsolidationService(uow, settings, opts...),
		Allocation:    NewAllocationService(uow, settings, opts...),
	}
}

// base holds what every service needs
type base struct {
	uow      ledger.UnitOfWork
	settings Settings
	metrics  *telemetry.LedgerMetrics
	now      func() time.Time
}

func newBase(uow ledger.UnitOfWork, settings Settings, opts []Option) base {
	b := base{uow: uow, settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// audit appends an audit entry for the calling actor
func (b *base) audit(ctx context.Context, repos ledger.Repositories, scope shared.Scope, action, targetType, targetID string, detail map[string]any) error {
	entry := ledger.NewAuditLogEntry(scope.TenantID, scope.OrgID, action, shared.ActorFromContext(ctx),
		logger.RequestID(ctx), targetType, targetID, detail)
	entry.CreatedAt = b.now()
	if err := repos.AuditLogs().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", action, err)
	}
	return nil
}

// publish writes event to the outbox inside the current transaction
func publish(ctx context.Context, repos ledger.Repositories, event shared.DomainEvent) error {
	row, err := shared.NewNotificationEvent(event)
	if err != nil {
		return err
	}
	if err := repos.Notifications().Append(ctx, row); err != nil {
		return fmt.Errorf("failed to append %s event: %w", event.EventType(), err)
	}
	return nil
}

// nextVoucherNo allocates V<yyyymm>-<nnnn> for the month of date
func nextVoucherNo(ctx context.Context, repos ledger.Repositories, scope shared.Scope, date time.Time) (string, error) {
	prefix := "V" + date.Format("200601") + "-"
	last, err := repos.Vouchers().LastVoucherNo(ctx, scope, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read last voucher number: %w", err)
	}
	seq := 0
	if last != "" {
		seq, err = strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed voucher number %q: %w", last, err)
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func voucherNotFound(id uuid.UUID) error {
	return shared.NewDomainError(shared.CodeVoucherNotFound, "voucher not found: "+id.String())
}

// loadVoucher returns the voucher only when scope owns it
func loadVoucher(ctx context.Context, repos ledger.Repositories, scope shared.Scope, id uuid.UUID) (*ledger.Voucher, error) {
	v, err := repos.Vouchers().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if v == nil || !v.BelongsTo(scope) {
		return nil, voucherNotFound(id)
	}
	return v, nil
}

// loadPeriod returns the stored period or an unsaved open one
func loadPeriod(ctx context.Context, repos ledger.Repositories, scope shared.Scope, period string) (*ledger.Period, error) {
	p, err := repos.Periods().Find(ctx, scope, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load period %s: %w", period, err)
	}
	if p != nil {
		return p, nil
	}
	return ledger.NewPeriod(scope, period)
}

// loadChart indexes the scope's accounts by code
func loadChart(ctx context.Context, repos ledger.Repositories, scope shared.Scope) (map[string]*ledger.Account, error) {
	accounts, err := repos.Accounts().FindAll(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart of accounts: %w", err)
	}
	chart := make(map[string]*ledger.Account, len(accounts))
	for i := range accounts {
		chart[accounts[i].Code] = &accounts[i]
	}
	return chart, nil
}

// baseCurrency returns the registered company's currency for the ledger, or the configured default
func (b *base) baseCurrency(ctx context.Context, repos ledger.Repositories, scope shared.Scope) (string, error) {
	company, err := repos.Companies().FindByLedger(ctx, scope)
	if err != nil {
		return "", fmt.Errorf("failed to load company: %w", err)
	}
	if company != nil {
		return company.BaseCurrency, nil
	}
	return b.settings.BaseCurrency, nil
}

// postSystemVoucher creates a generated voucher and posts it straight into the balance ledger
func (b *base) postSystemVoucher(ctx context.Context, repos ledger.Repositories, scope shared.Scope, date time.Time, source ledger.VoucherSource, description string, entries []ledger.VoucherEntry) (*ledger.Voucher, error) {
	no, err := nextVoucherNo(ctx, repos, scope, date)
	if err != nil {
		return nil, err
	}
	v, err := ledger.NewVoucher(scope, no, date, ledger.EntryTypeNormal, source, description, entries)
	if err != nil {
		return nil, err
	}
	v.CreatedBy = shared.ActorFromContext(ctx)
	if err := v.ConfirmSystem(b.now()); err != nil {
		return nil, err
	}
	if err := repos.Vouchers().Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create %s voucher: %w", source, err)
	}
	if err := b.post(ctx, repos, v, nil); err != nil {
		return nil, err
	}
	return v, nil
}

// post applies a confirmed voucher to balances and records the audit entry and outbox event
func (b *base) post(ctx context.Context, repos ledger.Repositories, v *ledger.Voucher, warnings []string) error {
	frozen, err := applyBalances(ctx, repos, v.Scope(), v.Period, v.Entries)
	if err != nil {
		return err
	}
	detail := map[string]any{
		"voucher_no":   v.VoucherNo,
		"period":       v.Period,
		"source":       v.Source,
		"total_debit":  v.TotalDebit.StringFixed(2),
		"total_credit": v.TotalCredit.StringFixed(2),
	}
	if frozen != "" {
		carried, err := b.carryPast(ctx, repos, v, frozen)
		if err != nil {
			return err
		}
		detail["carried_forward_to"] = carried.VoucherNo
		detail["carry_period"] = carried.Period
	}
	if len(warnings) > 0 {
		detail["warnings"] = warnings
	}
	if err := b.audit(ctx, repos, v.Scope(), ledger.AuditVoucherPost, ledger.AggregateTypeVoucher, v.ID.String(), detail); err != nil {
		return err
	}
	return publish(ctx, repos, ledger.NewVoucherConfirmedEvent(v, warnings))
}

// carryPast posts the lines of v again in the first open period after the
// closed period frozen, which the roll-forward of v did not reach
func (b *base) carryPast(ctx context.Context, repos ledger.Repositories, v *ledger.Voucher, frozen string) (*ledger.Voucher, error) {
	target, err := nextOpenPeriod(ctx, repos, v.Scope(), frozen)
	if err != nil {
		return nil, err
	}
	return b.postSystemVoucher(ctx, repos, v.Scope(), ledger.PeriodStart(target), ledger.SourceCarryForward,
		"carry forward "+v.VoucherNo+" past closed "+frozen, carriedEntries(v.Entries))
}

// carriedEntries copies voucher lines for a new voucher
func carriedEntries(entries []ledger.VoucherEntry) []ledger.VoucherEntry {
	out := make([]ledger.VoucherEntry, len(entries))
	for i, e := range entries {
		e.ID = uuid.Nil
		out[i] = e
	}
	return out
}

// postedAfterCommit reports confirmed vouchers to metrics once the transaction is durable
func (b *base) postedAfterCommit(ctx context.Context, vouchers ...*ledger.Voucher) {
	for _, v := range vouchers {
		if v == nil || !v.IsPosted() {
			continue
		}
		b.metrics.VoucherPosted(ctx, v.TenantID, string(v.Source))
	}
}

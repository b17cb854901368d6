package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	tenantA = shared.Scope{TenantID: "tenant-a", OrgID: "hq"}
	tenantB = shared.Scope{TenantID: "tenant-b", OrgID: "hq"}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(year int, month time.Month, dd int) time.Time {
	return time.Date(year, month, dd, 0, 0, 0, 0, time.UTC)
}

// fixture wires every service to one migrated in-memory database
type fixture struct {
	db            *gorm.DB
	uow           ledger.UnitOfWork
	settings      Settings
	vouchers      *VoucherService
	periods       *PeriodService
	reports       *ReportService
	fx            *FxService
	registry      *RegistryService
	consolidation *ConsolidationService
	allocation    *AllocationService
}

func newFixture(t *testing.T, tweak ...func(*Settings)) *fixture {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	settings := DefaultSettings()
	for _, fn := range tweak {
		fn(&settings)
	}
	uow := persistence.NewGormUnitOfWork(db.DB)
	return &fixture{
		db:            db.DB,
		uow:           uow,
		settings:      settings,
		vouchers:      NewVoucherService(uow, settings),
		periods:       NewPeriodService(uow, settings),
		reports:       NewReportService(uow, settings),
		fx:            NewFxService(uow, settings),
		registry:      NewRegistryService(uow, settings),
		consolidation: NewConsolidationService(uow, settings),
		allocation:    NewAllocationService(uow, settings),
	}
}

func scoped(scope shared.Scope) context.Context {
	return shared.WithActor(shared.WithScope(context.Background(), scope), "tester")
}

// seedChart registers a small chart of accounts in scope
func (f *fixture) seedChart(t *testing.T, ctx context.Context) {
	t.Helper()
	for _, a := range []AddAccountRequest{
		{Code: "1001", Name: "Cash", Type: ledger.AccountTypeAsset},
		{Code: "1002", Name: "Bank", Type: ledger.AccountTypeAsset},
		{Code: "1122", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset},
		{Code: "2202", Name: "Accounts Payable", Type: ledger.AccountTypeLiability},
		{Code: "4001", Name: "Paid-in Capital", Type: ledger.AccountTypeEquity},
		{Code: "4103", Name: "Profit and Loss Summary", Type: ledger.AccountTypeEquity},
		{Code: "4104", Name: "Retained Earnings", Type: ledger.AccountTypeEquity},
		{Code: "6001", Name: "Sales Revenue", Type: ledger.AccountTypeRevenue},
		{Code: "6401", Name: "Cost of Sales", Type: ledger.AccountTypeExpense},
		{Code: "6602", Name: "Administrative Expense", Type: ledger.AccountTypeExpense},
		{Code: "6603", Name: "Finance Expense", Type: ledger.AccountTypeExpense},
	} {
		_, err := f.registry.AddAccount(ctx, a)
		require.NoError(t, err)
	}
}

func (f *fixture) seedDepartments(t *testing.T, ctx context.Context, codes ...string) {
	t.Helper()
	for _, code := range codes {
		_, err := f.registry.AddDimension(ctx, AddDimensionRequest{Type: ledger.DimensionDepartment, Code: code})
		require.NoError(t, err)
	}
}

func line(account, debit, credit string) EntryInput {
	in := EntryInput{Account: account, Debit: decimal.Zero, Credit: decimal.Zero}
	if debit != "" {
		in.Debit = d(debit)
	}
	if credit != "" {
		in.Credit = d(credit)
	}
	return in
}

func (in EntryInput) dept(code string) EntryInput {
	in.Dimensions = map[ledger.DimensionType]string{ledger.DimensionDepartment: code}
	return in
}

// post creates and confirms a voucher in one call
func (f *fixture) post(t *testing.T, ctx context.Context, date time.Time, entries ...EntryInput) *VoucherResult {
	t.Helper()
	res, err := f.vouchers.Create(ctx, CreateVoucherRequest{Date: date, Entries: entries, AutoConfirm: true})
	require.NoError(t, err)
	require.Equal(t, ledger.VoucherStatusConfirmed, res.Status, "warnings: %v", res.Warnings)
	return res
}

func (f *fixture) balanceOf(t *testing.T, ctx context.Context, period, code string) report.AccountBalance {
	t.Helper()
	balances, err := f.reports.Balances(ctx, period)
	require.NoError(t, err)
	for _, b := range balances {
		if b.Code == code {
			return b
		}
	}
	return report.AccountBalance{Code: code, Opening: decimal.Zero, Debit: decimal.Zero, Credit: decimal.Zero, Closing: decimal.Zero}
}

func (f *fixture) balanceRows(t *testing.T, scope shared.Scope, period string) []ledger.Balance {
	t.Helper()
	rows, err := persistence.NewGormBalanceRepository(f.db).FindByPeriod(context.Background(), scope, period)
	require.NoError(t, err)
	return rows
}

func (f *fixture) auditActions(t *testing.T, targetType, targetID string) []string {
	t.Helper()
	entries, err := persistence.NewGormAuditLogRepository(f.db).FindByTarget(context.Background(), targetType, targetID)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, code), "want %s, got %v", code, err)
}

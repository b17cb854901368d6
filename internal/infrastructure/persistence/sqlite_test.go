package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scopeA = shared.Scope{TenantID: "tenant-a", OrgID: "hq"}
	scopeB = shared.Scope{TenantID: "tenant-b", OrgID: "hq"}
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestVoucher(t *testing.T, scope shared.Scope, no string, date time.Time, value string) *ledger.Voucher {
	t.Helper()
	v, err := ledger.NewVoucher(scope, no, date, ledger.EntryTypeNormal, ledger.SourceManual, "test", []ledger.VoucherEntry{
		{AccountCode: "1001", DebitAmount: amount(value)},
		{AccountCode: "6001", CreditAmount: amount(value)},
	})
	require.NoError(t, err)
	return v
}

func TestSQLite_AccountScoping(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormAccountRepository(db.DB)
	ctx := context.Background()

	for _, scope := range []shared.Scope{scopeA, scopeB} {
		account, err := ledger.NewAccount(scope, "1001", "Cash "+scope.TenantID, ledger.AccountTypeAsset, "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, account))
	}

	t.Run("same code resolves per tenant", func(t *testing.T) {
		a, err := repo.FindByCode(ctx, scopeA, "1001")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "Cash tenant-a", a.Name)

		b, err := repo.FindByCode(ctx, scopeB, "1001")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, "Cash tenant-b", b.Name)
	})

	t.Run("other org sees nothing", func(t *testing.T) {
		a, err := repo.FindByCode(ctx, shared.Scope{TenantID: "tenant-a", OrgID: "branch"}, "1001")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("code is unique within a ledger", func(t *testing.T) {
		dup, err := ledger.NewAccount(scopeA, "1001", "Cash again", ledger.AccountTypeAsset, "", nil)
		require.NoError(t, err)
		assert.Error(t, repo.Save(ctx, dup))

		branch, err := ledger.NewAccount(shared.Scope{TenantID: "tenant-a", OrgID: "branch"}, "1001", "Branch cash", ledger.AccountTypeAsset, "", nil)
		require.NoError(t, err)
		assert.NoError(t, repo.Save(ctx, branch))
	})
}

func TestSQLite_VoucherRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormVoucherRepository(db.DB)
	ctx := context.Background()
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	v1 := newTestVoucher(t, scopeA, "V202401-0001", jan, "100")
	v2 := newTestVoucher(t, scopeA, "V202401-0002", jan.AddDate(0, 0, 1), "50")
	other := newTestVoucher(t, scopeB, "V202401-0001", jan, "70")
	for _, v := range []*ledger.Voucher{v1, v2, other} {
		require.NoError(t, repo.Create(ctx, v))
	}

	t.Run("voucher numbers are unique within a ledger", func(t *testing.T) {
		assert.Error(t, repo.Create(ctx, newTestVoucher(t, scopeA, "V202401-0001", jan, "1")))
	})

	t.Run("FindByID loads entries in line order", func(t *testing.T) {
		found, err := repo.FindByID(ctx, v1.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Len(t, found.Entries, 2)
		assert.Equal(t, 1, found.Entries[0].LineNo)
		assert.Equal(t, "1001", found.Entries[0].AccountCode)
		assert.True(t, found.Entries[0].DebitAmount.Equal(amount("100")))
	})

	t.Run("List pages within scope", func(t *testing.T) {
		items, total, err := repo.List(ctx, scopeA, ledger.VoucherFilter{Filter: shared.Filter{Page: 1, PageSize: 1}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 1)
		assert.Equal(t, "V202401-0001", items[0].VoucherNo)
	})

	t.Run("List honours whitelisted ordering", func(t *testing.T) {
		items, _, err := repo.List(ctx, scopeA, ledger.VoucherFilter{Filter: shared.Filter{OrderBy: "date", OrderDir: "desc"}})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "V202401-0002", items[0].VoucherNo)

		items, _, err = repo.List(ctx, scopeA, ledger.VoucherFilter{Filter: shared.Filter{OrderBy: "memo; --"}})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "V202401-0001", items[0].VoucherNo)
	})

	t.Run("posted entries exclude drafts", func(t *testing.T) {
		now := time.Now().UTC()
		require.NoError(t, v1.Review(now))
		require.NoError(t, v1.Confirm(now))
		require.NoError(t, repo.Update(ctx, v1))

		entries, err := repo.FindPostedEntries(ctx, scopeA, ledger.EntryQuery{ToPeriod: "2024-01"})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "V202401-0001", entries[0].VoucherNo)
		assert.Equal(t, "2024-01", entries[0].Period)

		foreign, err := repo.FindPostedEntries(ctx, scopeA, ledger.EntryQuery{ToPeriod: "2024-01", ForeignOnly: true})
		require.NoError(t, err)
		assert.Empty(t, foreign)
	})

	t.Run("CountUnposted counts drafts and reviewed", func(t *testing.T) {
		n, err := repo.CountUnposted(ctx, scopeA, "2024-01")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("archived vouchers are hidden by default", func(t *testing.T) {
		require.NoError(t, v1.Archive(time.Now().UTC()))
		require.NoError(t, repo.Update(ctx, v1))

		_, total, err := repo.List(ctx, scopeA, ledger.VoucherFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = repo.List(ctx, scopeA, ledger.VoucherFilter{IncludeArchived: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("Delete removes voucher and entries", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, v2))

		found, err := repo.FindByID(ctx, v2.ID)
		require.NoError(t, err)
		assert.Nil(t, found)

		var count int64
		require.NoError(t, db.DB.Model(&ledger.VoucherEntry{}).Where("voucher_id = ?", v2.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestSQLite_BalanceRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormBalanceRepository(db.DB)
	ctx := context.Background()
	dept := uuid.New()

	save := func(account, period string, dims ledger.DimensionKey, opening, debit string) {
		row := ledger.NewBalance(scopeA, ledger.BalanceKey{AccountCode: account, Period: period, Dims: dims}, amount(opening))
		row.Apply(ledger.Delta{Debit: amount(debit), Credit: decimal.Zero}, ledger.DirectionDebit)
		require.NoError(t, repo.Save(ctx, row))
	}
	save("1001", "2024-01", ledger.DimensionKey{}, "0", "100")
	save("1001", "2024-03", ledger.DimensionKey{}, "100", "20")
	save("1001", "2024-01", ledger.DimensionKey{DepartmentID: dept}, "0", "5")
	save("6602", "2024-02", ledger.DimensionKey{}, "0", "7")

	t.Run("FindForUpdate distinguishes dimension tuples", func(t *testing.T) {
		row, err := repo.FindForUpdate(ctx, scopeA, ledger.BalanceKey{AccountCode: "1001", Period: "2024-01", Dims: ledger.DimensionKey{DepartmentID: dept}})
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.True(t, row.ClosingBalance.Equal(amount("5")))
	})

	t.Run("FindLatestBefore skips gaps", func(t *testing.T) {
		row, err := repo.FindLatestBefore(ctx, scopeA, ledger.BalanceKey{AccountCode: "1001", Period: "2024-03"})
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "2024-01", row.Period)
	})

	t.Run("FindLater returns later rows oldest first", func(t *testing.T) {
		rows, err := repo.FindLater(ctx, scopeA, ledger.BalanceKey{AccountCode: "1001", Period: "2024-01"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2024-03", rows[0].Period)
	})

	t.Run("FindAsOf keeps the latest row per series", func(t *testing.T) {
		rows, err := repo.FindAsOf(ctx, scopeA, "2024-02")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		byKey := map[string]ledger.Balance{}
		for _, r := range rows {
			byKey[r.AccountCode+"/"+r.DepartmentID.String()] = r
		}
		assert.Equal(t, "2024-01", byKey["1001/"+uuid.Nil.String()].Period)
		assert.Equal(t, "2024-02", byKey["6602/"+uuid.Nil.String()].Period)
	})

	t.Run("other tenants see nothing", func(t *testing.T) {
		rows, err := repo.FindByPeriod(ctx, scopeB, "2024-01")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestSQLite_FxRateRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormFxRateRepository(db.DB)
	ctx := context.Background()

	for _, r := range []struct {
		day  int
		rate string
	}{{1, "7.10"}, {10, "7.20"}, {20, "7.30"}} {
		rate, err := ledger.NewFxRate(scopeA, "USD", "CNY", ledger.RateSpot, time.Date(2024, 1, r.day, 0, 0, 0, 0, time.UTC), amount(r.rate))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, rate))
	}

	t.Run("picks the latest rate on or before the date", func(t *testing.T) {
		rate, err := repo.FindLatest(ctx, scopeA, "USD", "CNY", ledger.RateSpot, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.True(t, rate.Rate.Equal(amount("7.20")))
	})

	t.Run("nothing before the first rate", func(t *testing.T) {
		rate, err := repo.FindLatest(ctx, scopeA, "USD", "CNY", ledger.RateSpot, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, rate)
	})

	t.Run("rate type must match", func(t *testing.T) {
		rate, err := repo.FindLatest(ctx, scopeA, "USD", "CNY", ledger.RateClosing, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, rate)
	})
}

func TestSQLite_NotificationOutbox(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormNotificationRepository(db.DB)
	ctx := context.Background()

	v := newTestVoucher(t, scopeA, "V202401-0001", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "10")
	row, err := shared.NewNotificationEvent(ledger.NewVoucherConfirmedEvent(v, nil))
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, row))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ledger.EventTypeVoucherConfirmed, pending[0].EventType)

	require.NoError(t, repo.MarkDelivered(ctx, row.ID, time.Now().UTC()))

	pending, err = repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	t.Run("unknown event is not found", func(t *testing.T) {
		err := repo.MarkDelivered(ctx, uuid.New(), time.Now().UTC())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestSQLite_UnitOfWorkRollback(t *testing.T) {
	db := newSQLiteDatabase(t)
	uow := NewGormUnitOfWork(db.DB)
	ctx := context.Background()

	err := uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := ledger.NewPeriod(scopeA, "2024-01")
		require.NoError(t, err)
		require.NoError(t, repos.Periods().Save(ctx, p))
		require.NoError(t, repos.AuditLogs().Append(ctx, ledger.NewAuditLogEntry("tenant-a", "hq", ledger.AuditPeriodClose, "alice", "", "period", "2024-01", nil)))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	p, err := NewGormPeriodRepository(db.DB).Find(ctx, scopeA, "2024-01")
	require.NoError(t, err)
	assert.Nil(t, p)

	entries, err := NewGormAuditLogRepository(db.DB).FindByTarget(ctx, "period", "2024-01")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

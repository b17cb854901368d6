//go:build integration

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a disposable postgres, applies the embedded migrations
// and returns a gorm handle to it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_ConcurrentBalanceUpdates(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	scope := shared.Scope{TenantID: "tenant-a", OrgID: "hq"}
	key := ledger.BalanceKey{AccountCode: "1001", Period: "2024-01"}

	require.NoError(t, NewGormBalanceRepository(db).Save(ctx, ledger.NewBalance(scope, key, decimal.Zero)))

	uow := NewGormUnitOfWork(db)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.Do(ctx, func(repos ledger.Repositories) error {
				row, err := repos.Balances().FindForUpdate(ctx, scope, key)
				if err != nil {
					return err
				}
				row.Apply(ledger.Delta{Debit: decimal.NewFromInt(10), Credit: decimal.Zero}, ledger.DirectionDebit)
				return repos.Balances().Save(ctx, row)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	row, err := NewGormBalanceRepository(db).FindForUpdate(ctx, scope, key)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.ClosingBalance.Equal(decimal.NewFromInt(100)), row.ClosingBalance.String())
}

func TestPostgres_VoucherNumberUnique(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	repo := NewGormVoucherRepository(db)
	scope := shared.Scope{TenantID: "tenant-a", OrgID: "hq"}
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	build := func() *ledger.Voucher {
		v, err := ledger.NewVoucher(scope, "V202401-0001", date, ledger.EntryTypeNormal, ledger.SourceManual, "", []ledger.VoucherEntry{
			{AccountCode: "1001", DebitAmount: decimal.NewFromInt(5)},
			{AccountCode: "6001", CreditAmount: decimal.NewFromInt(5)},
		})
		require.NoError(t, err)
		return v
	}

	require.NoError(t, repo.Create(ctx, build()))
	assert.Error(t, repo.Create(ctx, build()))
}

func TestPostgres_AuditLogIsAppendOnly(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	entry := ledger.NewAuditLogEntry("tenant-a", "hq", ledger.AuditVoucherCreate, "alice", "", "voucher", "x", nil)
	require.NoError(t, NewGormAuditLogRepository(db).Append(ctx, entry))

	err := db.WithContext(ctx).Model(&ledger.AuditLogEntry{}).Where("id = ?", entry.ID).Update("actor", "mallory").Error
	assert.Error(t, err)
}

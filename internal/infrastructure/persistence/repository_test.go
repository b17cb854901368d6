package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mockScope = shared.Scope{TenantID: "tenant-a", OrgID: "hq"}

func TestGormAccountRepository_FindByCode(t *testing.T) {
	t.Run("finds account within scope", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "tenant_id", "org_id", "code", "name", "level", "type", "direction", "enabled"}).
			AddRow(id, "tenant-a", "hq", "1001", "Cash", 1, "asset", "debit", true)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts" WHERE tenant_id = \$1 AND org_id = \$2 AND code = \$3 LIMIT .*`).
			WithArgs("tenant-a", "hq", "1001", 1).
			WillReturnRows(rows)

		account, err := repo.FindByCode(context.Background(), mockScope, "1001")

		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, id, account.ID)
		assert.Equal(t, ledger.AccountTypeAsset, account.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when missing", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts" WHERE tenant_id = \$1 AND org_id = \$2 AND code = \$3 LIMIT .*`).
			WithArgs("tenant-a", "hq", "9999", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		account, err := repo.FindByCode(context.Background(), mockScope, "9999")

		assert.NoError(t, err)
		assert.Nil(t, account)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates driver errors", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormAccountRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "ledger_accounts"`).WillReturnError(assert.AnError)

		account, err := repo.FindByCode(context.Background(), mockScope, "1001")

		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, account)
	})
}

func TestGormVoucherRepository_LastVoucherNo(t *testing.T) {
	t.Run("returns highest number with prefix", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormVoucherRepository(gormDB)

		mock.ExpectQuery(`SELECT "voucher_no" FROM "ledger_vouchers" WHERE tenant_id = \$1 AND org_id = \$2 AND voucher_no LIKE \$3 ORDER BY voucher_no DESC LIMIT .*`).
			WithArgs("tenant-a", "hq", "V202401-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"voucher_no"}).AddRow("V202401-0007"))

		no, err := repo.LastVoucherNo(context.Background(), mockScope, "V202401-")

		require.NoError(t, err)
		assert.Equal(t, "V202401-0007", no)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty string for a fresh period", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormVoucherRepository(gormDB)

		mock.ExpectQuery(`SELECT "voucher_no" FROM "ledger_vouchers"`).
			WillReturnRows(sqlmock.NewRows([]string{"voucher_no"}))

		no, err := repo.LastVoucherNo(context.Background(), mockScope, "V202402-")

		require.NoError(t, err)
		assert.Empty(t, no)
	})
}

func TestGormBalanceRepository_FindForUpdate(t *testing.T) {
	t.Run("locks the row on postgres", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormBalanceRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "ledger_balances" WHERE tenant_id = \$1 AND org_id = \$2 AND account_code = \$3 .* AND period = \$9 LIMIT .* FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		row, err := repo.FindForUpdate(context.Background(), mockScope, ledger.BalanceKey{AccountCode: "1001", Period: "2024-01"})

		require.NoError(t, err)
		assert.Nil(t, row)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUnitOfWork_Do(t *testing.T) {
	t.Run("commits when the callback succeeds", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "ledger_periods"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		err := NewGormUnitOfWork(gormDB).Do(context.Background(), func(repos ledger.Repositories) error {
			_, err := repos.Periods().Find(context.Background(), mockScope, "2024-01")
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewGormUnitOfWork(gormDB).Do(context.Background(), func(repos ledger.Repositories) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

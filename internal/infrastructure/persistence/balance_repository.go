package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceRepository implements ledger.BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// sameSeries matches every period of one account and dimension tuple
func sameSeries(scope shared.Scope, key ledger.BalanceKey) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(scoped(scope)).
			Where("account_code = ?", key.AccountCode).
			Where("department_id = ? AND project_id = ? AND customer_id = ? AND supplier_id = ? AND employee_id = ?",
				key.Dims.DepartmentID, key.Dims.ProjectID, key.Dims.CustomerID, key.Dims.SupplierID, key.Dims.EmployeeID)
	}
}

// FindForUpdate loads one balance row, taking a row lock on postgres
func (r *GormBalanceRepository) FindForUpdate(ctx context.Context, scope shared.Scope, key ledger.BalanceKey) (*ledger.Balance, error) {
	q := r.db.WithContext(ctx).Scopes(sameSeries(scope, key)).Where("period = ?", key.Period)
	if isPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return takeOne[ledger.Balance](q)
}

// FindLatestBefore returns the row of the nearest earlier period
func (r *GormBalanceRepository) FindLatestBefore(ctx context.Context, scope shared.Scope, key ledger.BalanceKey) (*ledger.Balance, error) {
	return takeOne[ledger.Balance](r.db.WithContext(ctx).Scopes(sameSeries(scope, key)).
		Where("period < ?", key.Period).
		Order("period DESC"))
}

// FindLater returns rows of later periods, oldest first
func (r *GormBalanceRepository) FindLater(ctx context.Context, scope shared.Scope, key ledger.BalanceKey) ([]ledger.Balance, error) {
	q := r.db.WithContext(ctx).Scopes(sameSeries(scope, key)).
		Where("period > ?", key.Period).
		Order("period")
	if isPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []ledger.Balance
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByPeriod returns every row of a period ordered by account code
func (r *GormBalanceRepository) FindByPeriod(ctx context.Context, scope shared.Scope, period string) ([]ledger.Balance, error) {
	var rows []ledger.Balance
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("period = ?", period).
		Order("account_code").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindAsOf returns the latest row at or before period for every series
func (r *GormBalanceRepository) FindAsOf(ctx context.Context, scope shared.Scope, period string) ([]ledger.Balance, error) {
	var rows []ledger.Balance
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("period <= ?", period).
		Order("period").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	latest := make(map[seriesKey]int)
	var out []ledger.Balance
	for _, row := range rows {
		k := seriesKey{account: row.AccountCode, dims: row.Dims()}
		if i, ok := latest[k]; ok {
			out[i] = row
			continue
		}
		latest[k] = len(out)
		out = append(out, row)
	}
	return out, nil
}

type seriesKey struct {
	account string
	dims    ledger.DimensionKey
}

// Save creates or updates a balance row
func (r *GormBalanceRepository) Save(ctx context.Context, balance *ledger.Balance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

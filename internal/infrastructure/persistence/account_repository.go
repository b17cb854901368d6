package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByCode finds an account by its code within a ledger
func (r *GormAccountRepository) FindByCode(ctx context.Context, scope shared.Scope, code string) (*ledger.Account, error) {
	return takeOne[ledger.Account](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("code = ?", code))
}

// FindByName finds an account by its exact name within a ledger
func (r *GormAccountRepository) FindByName(ctx context.Context, scope shared.Scope, name string) (*ledger.Account, error) {
	return takeOne[ledger.Account](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("name = ?", name).Order("code"))
}

// FindAll returns the whole chart ordered by code
func (r *GormAccountRepository) FindAll(ctx context.Context, scope shared.Scope) ([]ledger.Account, error) {
	var accounts []ledger.Account
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Order("code").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

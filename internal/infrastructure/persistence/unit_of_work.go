package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormUnitOfWork runs each call in one gorm transaction and hands the callback
// repositories bound to that transaction.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do implements ledger.UnitOfWork
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(repos ledger.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Repositories binds every repository to one handle
type Repositories struct {
	db *gorm.DB
}

// NewRepositories creates repositories sharing db, usually a transaction
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{db: db}
}

func (r *Repositories) Accounts() ledger.AccountRepository { return NewGormAccountRepository(r.db) }

func (r *Repositories) Dimensions() ledger.DimensionRepository {
	return NewGormDimensionRepository(r.db)
}

func (r *Repositories) Vouchers() ledger.VoucherRepository { return NewGormVoucherRepository(r.db) }

func (r *Repositories) Balances() ledger.BalanceRepository { return NewGormBalanceRepository(r.db) }

func (r *Repositories) Periods() ledger.PeriodRepository { return NewGormPeriodRepository(r.db) }

func (r *Repositories) Approvals() ledger.ApprovalRepository {
	return NewGormApprovalRepository(r.db)
}

func (r *Repositories) AuditLogs() ledger.AuditLogRepository {
	return NewGormAuditLogRepository(r.db)
}

func (r *Repositories) Notifications() ledger.NotificationRepository {
	return NewGormNotificationRepository(r.db)
}

func (r *Repositories) FxRates() ledger.FxRateRepository { return NewGormFxRateRepository(r.db) }

func (r *Repositories) Budgets() ledger.BudgetRepository { return NewGormBudgetRepository(r.db) }

func (r *Repositories) AuditRules() ledger.AuditRuleRepository {
	return NewGormAuditRuleRepository(r.db)
}

func (r *Repositories) Companies() ledger.CompanyRepository {
	return NewGormCompanyRepository(r.db)
}

func (r *Repositories) Documents() ledger.DocumentRepository {
	return NewGormDocumentRepository(r.db)
}

var (
	_ ledger.UnitOfWork   = (*GormUnitOfWork)(nil)
	_ ledger.Repositories = (*Repositories)(nil)
)

package persistence

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// GormFxRateRepository implements ledger.FxRateRepository using GORM
type GormFxRateRepository struct {
	db *gorm.DB
}

// NewGormFxRateRepository creates a new GormFxRateRepository
func NewGormFxRateRepository(db *gorm.DB) *GormFxRateRepository {
	return &GormFxRateRepository{db: db}
}

// FindLatest returns the newest rate dated on or before asOf
func (r *GormFxRateRepository) FindLatest(ctx context.Context, scope shared.Scope, base, quote string, rateType ledger.RateType, asOf time.Time) (*ledger.FxRate, error) {
	return takeOne[ledger.FxRate](r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("base_currency = ? AND quote_currency = ? AND rate_type = ?", base, quote, rateType).
		Where("rate_date <= ?", asOf).
		Order("rate_date DESC, created_at DESC"))
}

// Save creates or updates a rate
func (r *GormFxRateRepository) Save(ctx context.Context, rate *ledger.FxRate) error {
	return r.db.WithContext(ctx).Save(rate).Error
}

// GormBudgetRepository implements ledger.BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// Find returns the ceiling of one dimension in one period
func (r *GormBudgetRepository) Find(ctx context.Context, scope shared.Scope, period string, dimType ledger.DimensionType, dimCode string) (*ledger.Budget, error) {
	return takeOne[ledger.Budget](r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("period = ? AND dimension_type = ? AND dimension_code = ?", period, dimType, dimCode))
}

// Save creates or updates a budget
func (r *GormBudgetRepository) Save(ctx context.Context, budget *ledger.Budget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

// GormAuditRuleRepository implements ledger.AuditRuleRepository using GORM
type GormAuditRuleRepository struct {
	db *gorm.DB
}

// NewGormAuditRuleRepository creates a new GormAuditRuleRepository
func NewGormAuditRuleRepository(db *gorm.DB) *GormAuditRuleRepository {
	return &GormAuditRuleRepository{db: db}
}

// FindByCode returns one rule
func (r *GormAuditRuleRepository) FindByCode(ctx context.Context, scope shared.Scope, code string) (*ledger.AuditRule, error) {
	return takeOne[ledger.AuditRule](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("code = ?", code))
}

// FindEnabled returns enabled rules ordered by code
func (r *GormAuditRuleRepository) FindEnabled(ctx context.Context, scope shared.Scope) ([]ledger.AuditRule, error) {
	var rules []ledger.AuditRule
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("enabled = ?", true).
		Order("code").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a rule
func (r *GormAuditRuleRepository) Save(ctx context.Context, rule *ledger.AuditRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// GormCompanyRepository implements ledger.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// FindByCode returns a company registered in the group scope
func (r *GormCompanyRepository) FindByCode(ctx context.Context, scope shared.Scope, code string) (*ledger.Company, error) {
	return takeOne[ledger.Company](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("code = ?", code))
}

// FindByLedger returns the company whose balances live in ledgerScope
func (r *GormCompanyRepository) FindByLedger(ctx context.Context, ledgerScope shared.Scope) (*ledger.Company, error) {
	return takeOne[ledger.Company](r.db.WithContext(ctx).
		Where("tenant_id = ? AND ledger_org_id = ?", ledgerScope.TenantID, ledgerScope.OrgID).
		Order("created_at"))
}

// Save creates or updates a company
func (r *GormCompanyRepository) Save(ctx context.Context, company *ledger.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// GormDocumentRepository stores consolidation rules and report templates as JSON text
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindRule returns a named consolidation rule
func (r *GormDocumentRepository) FindRule(ctx context.Context, scope shared.Scope, name string) (*ledger.ConsolidationRuleRecord, error) {
	return takeOne[ledger.ConsolidationRuleRecord](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("name = ?", name))
}

// SaveRule creates or updates a consolidation rule
func (r *GormDocumentRepository) SaveRule(ctx context.Context, record *ledger.ConsolidationRuleRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// FindTemplate returns a named report template
func (r *GormDocumentRepository) FindTemplate(ctx context.Context, scope shared.Scope, name string) (*ledger.ReportTemplateRecord, error) {
	return takeOne[ledger.ReportTemplateRecord](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("name = ?", name))
}

// SaveTemplate creates or updates a report template
func (r *GormDocumentRepository) SaveTemplate(ctx context.Context, record *ledger.ReportTemplateRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

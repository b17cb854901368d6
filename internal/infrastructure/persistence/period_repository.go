package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPeriodRepository implements ledger.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// Find returns the period row, or nil when the period was never touched
func (r *GormPeriodRepository) Find(ctx context.Context, scope shared.Scope, period string) (*ledger.Period, error) {
	return takeOne[ledger.Period](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("period = ?", period))
}

// FindAll lists known periods in order
func (r *GormPeriodRepository) FindAll(ctx context.Context, scope shared.Scope) ([]ledger.Period, error) {
	var periods []ledger.Period
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).Order("period").Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

// Save creates or updates a period
func (r *GormPeriodRepository) Save(ctx context.Context, period *ledger.Period) error {
	return r.db.WithContext(ctx).Save(period).Error
}

// GormApprovalRepository implements ledger.ApprovalRepository using GORM
type GormApprovalRepository struct {
	db *gorm.DB
}

// NewGormApprovalRepository creates a new GormApprovalRepository
func NewGormApprovalRepository(db *gorm.DB) *GormApprovalRepository {
	return &GormApprovalRepository{db: db}
}

// FindByTarget returns the most recent approval of a target
func (r *GormApprovalRepository) FindByTarget(ctx context.Context, scope shared.Scope, targetType string, targetID uuid.UUID) (*ledger.Approval, error) {
	return takeOne[ledger.Approval](r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at DESC"))
}

// Save creates or updates an approval
func (r *GormApprovalRepository) Save(ctx context.Context, approval *ledger.Approval) error {
	return r.db.WithContext(ctx).Save(approval).Error
}

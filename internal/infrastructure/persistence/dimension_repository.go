package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDimensionRepository implements ledger.DimensionRepository using GORM
type GormDimensionRepository struct {
	db *gorm.DB
}

// NewGormDimensionRepository creates a new GormDimensionRepository
func NewGormDimensionRepository(db *gorm.DB) *GormDimensionRepository {
	return &GormDimensionRepository{db: db}
}

// FindByCode finds a dimension by type and code
func (r *GormDimensionRepository) FindByCode(ctx context.Context, scope shared.Scope, dimType ledger.DimensionType, code string) (*ledger.Dimension, error) {
	return takeOne[ledger.Dimension](r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("type = ? AND code = ?", dimType, code))
}

// FindByID finds a dimension by id within a ledger
func (r *GormDimensionRepository) FindByID(ctx context.Context, scope shared.Scope, id uuid.UUID) (*ledger.Dimension, error) {
	return takeOne[ledger.Dimension](r.db.WithContext(ctx).Scopes(scoped(scope)).Where("id = ?", id))
}

// FindAll lists the dimensions of one type ordered by code
func (r *GormDimensionRepository) FindAll(ctx context.Context, scope shared.Scope, dimType ledger.DimensionType) ([]ledger.Dimension, error) {
	var dims []ledger.Dimension
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("type = ?", dimType).
		Order("code").
		Find(&dims).Error; err != nil {
		return nil, err
	}
	return dims, nil
}

// Save creates or updates a dimension
func (r *GormDimensionRepository) Save(ctx context.Context, dimension *ledger.Dimension) error {
	return r.db.WithContext(ctx).Save(dimension).Error
}

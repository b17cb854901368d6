package persistence

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherRepository implements ledger.VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

func preloadEntries(db *gorm.DB) *gorm.DB {
	return db.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no")
	})
}

// FindByID loads a voucher and its entries
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Voucher, error) {
	return takeOne[ledger.Voucher](r.db.WithContext(ctx).Scopes(preloadEntries).Where("id = ?", id))
}

// List returns one page of vouchers and the total match count
func (r *GormVoucherRepository) List(ctx context.Context, scope shared.Scope, filter ledger.VoucherFilter) ([]ledger.Voucher, int64, error) {
	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&ledger.Voucher{}).Scopes(scoped(scope))
		if filter.Period != "" {
			query = query.Where("period = ?", filter.Period)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		} else if !filter.IncludeArchived {
			query = query.Where("status <> ?", ledger.VoucherStatusArchived)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Filter.Normalize()
	var vouchers []ledger.Voucher
	if err := filtered().Scopes(preloadEntries).
		Order(voucherOrder(page.OrderBy, page.OrderDir)).
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// Create inserts a voucher with its entries
func (r *GormVoucherRepository) Create(ctx context.Context, voucher *ledger.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// Update writes header fields only
func (r *GormVoucherRepository) Update(ctx context.Context, voucher *ledger.Voucher) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(voucher).Error
}

// Delete physically removes a voucher and its entries
func (r *GormVoucherRepository) Delete(ctx context.Context, voucher *ledger.Voucher) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("voucher_id = ?", voucher.ID).Delete(&ledger.VoucherEntry{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", voucher.ID).Delete(&ledger.Voucher{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("voucher " + voucher.ID.String() + " was not deleted")
	}
	return nil
}

// CountUnposted counts drafts and reviewed vouchers of a period
func (r *GormVoucherRepository) CountUnposted(ctx context.Context, scope shared.Scope, period string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ledger.Voucher{}).Scopes(scoped(scope)).
		Where("period = ?", period).
		Where("status IN ?", []ledger.VoucherStatus{ledger.VoucherStatusDraft, ledger.VoucherStatusReviewed}).
		Count(&count).Error
	return count, err
}

// LastVoucherNo returns the highest voucher number starting with prefix, or ""
func (r *GormVoucherRepository) LastVoucherNo(ctx context.Context, scope shared.Scope, prefix string) (string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).Model(&ledger.Voucher{}).Scopes(scoped(scope)).
		Where("voucher_no LIKE ?", prefix+"%").
		Order("voucher_no DESC").
		Limit(1).
		Pluck("voucher_no", &numbers).Error; err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// FindArchivable returns confirmed vouchers of periods before beforePeriod
func (r *GormVoucherRepository) FindArchivable(ctx context.Context, scope shared.Scope, beforePeriod string) ([]ledger.Voucher, error) {
	var vouchers []ledger.Voucher
	if err := r.db.WithContext(ctx).Scopes(scoped(scope)).
		Where("status = ?", ledger.VoucherStatusConfirmed).
		Where("period < ?", beforePeriod).
		Order("period, voucher_no").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// FindPostedEntries returns the lines of every voucher in the period range whose
// entries reached the balance ledger
func (r *GormVoucherRepository) FindPostedEntries(ctx context.Context, scope shared.Scope, query ledger.EntryQuery) ([]ledger.PostedEntry, error) {
	q := r.db.WithContext(ctx).
		Table("ledger_voucher_entries AS e").
		Select("e.*, v.voucher_no, v.period, v.source, v.status").
		Joins("JOIN ledger_vouchers AS v ON v.id = e.voucher_id").
		Where("v.tenant_id = ? AND v.org_id = ?", scope.TenantID, scope.OrgID).
		Where("v.status IN ?", ledger.PostedStatuses).
		// an adjustment carried out of a closed period is counted where its copy posted
		Where("v.carried_forward_to IS NULL")
	if query.FromPeriod != "" {
		q = q.Where("v.period >= ?", query.FromPeriod)
	}
	if query.ToPeriod != "" {
		q = q.Where("v.period <= ?", query.ToPeriod)
	}
	if query.ForeignOnly {
		q = q.Where("(e.foreign_debit <> 0 OR e.foreign_credit <> 0)")
	}

	var entries []ledger.PostedEntry
	if err := q.Order("v.period, v.voucher_no, e.line_no").Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

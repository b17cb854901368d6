package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditLogRepository appends audit entries. It has no update or delete path.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append inserts one entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *ledger.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByTarget returns a target's history, oldest first
func (r *GormAuditLogRepository) FindByTarget(ctx context.Context, targetType, targetID string) ([]ledger.AuditLogEntry, error) {
	var entries []ledger.AuditLogEntry
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GormNotificationRepository is the outbox table
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Append inserts a pending event
func (r *GormNotificationRepository) Append(ctx context.Context, event *shared.NotificationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindPending returns the oldest undelivered events
func (r *GormNotificationRepository) FindPending(ctx context.Context, limit int) ([]shared.NotificationEvent, error) {
	var events []shared.NotificationEvent
	if err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusPending).
		Order("created_at").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// MarkDelivered flags one event as handed off
func (r *GormNotificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID, now time.Time) error {
	event, err := takeOne[shared.NotificationEvent](r.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return err
	}
	if event == nil {
		return shared.ErrNotFound
	}
	if err := event.MarkDelivered(now); err != nil {
		return fmt.Errorf("mark event %s delivered: %w", id, err)
	}
	return r.db.WithContext(ctx).Save(event).Error
}

package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity provides common fields for all entities
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch bumps UpdatedAt
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ScopedEntity is a BaseEntity owned by one ledger scope
type ScopedEntity struct {
	BaseEntity
	TenantID string `gorm:"type:varchar(64);not null;default:'default';index" json:"tenant_id"`
	OrgID    string `gorm:"type:varchar(64);not null;default:'default';index" json:"org_id"`
}

// NewScopedEntity creates a new entity owned by scope
func NewScopedEntity(scope Scope) ScopedEntity {
	return ScopedEntity{
		BaseEntity: NewBaseEntity(),
		TenantID:   scope.TenantID,
		OrgID:      scope.OrgID,
	}
}

// Scope returns the owning scope
func (e *ScopedEntity) Scope() Scope {
	return Scope{TenantID: e.TenantID, OrgID: e.OrgID}
}

// BelongsTo reports whether the entity is owned by scope
func (e *ScopedEntity) BelongsTo(scope Scope) bool {
	return e.TenantID == scope.TenantID && e.OrgID == scope.OrgID
}

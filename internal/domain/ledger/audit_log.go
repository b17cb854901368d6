package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions written by the engine
const (
	AuditVoucherCreate       = "voucher.create"
	AuditVoucherReview       = "voucher.review"
	AuditVoucherRevert       = "voucher.revert"
	AuditVoucherPost         = "voucher.post"
	AuditVoucherVoid         = "voucher.void"
	AuditVoucherDelete       = "voucher.delete"
	AuditVoucherArchive      = "voucher.archive"
	AuditVoucherAccessDenied = "voucher.access_denied"
	AuditApprovalDecide      = "approval.decide"
	AuditPeriodClose         = "period.close"
	AuditPeriodReopen        = "period.reopen"
	AuditPeriodAdjustment    = "period.adjustment"
	AuditFxRevalue           = "fx.revalue"
	AuditConsolidationRun    = "consolidation.run"
	AuditCostAllocate        = "cost.allocate"
)

// AuditLogEntry is an append-only record of one action. Rows are never updated or deleted.
type AuditLogEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   string    `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	OrgID      string    `gorm:"type:varchar(64);not null" json:"org_id"`
	Action     string    `gorm:"type:varchar(64);not null;index" json:"action"`
	Actor      string    `gorm:"type:varchar(64);not null" json:"actor"`
	RequestID  string    `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	TargetType string    `gorm:"type:varchar(32)" json:"target_type"`
	TargetID   string    `gorm:"type:varchar(64);index" json:"target_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName returns the table name for GORM
func (AuditLogEntry) TableName() string {
	return "ledger_audit_logs"
}

// NewAuditLogEntry builds an entry; detail is serialized as JSON
func NewAuditLogEntry(tenantID, orgID, action, actor, requestID, targetType, targetID string, detail map[string]any) *AuditLogEntry {
	raw := "{}"
	if len(detail) > 0 {
		if b, err := json.Marshal(detail); err == nil {
			raw = string(b)
		}
	}
	return &AuditLogEntry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		OrgID:      orgID,
		Action:     action,
		Actor:      actor,
		RequestID:  requestID,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     raw,
		CreatedAt:  time.Now(),
	}
}

package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ApprovalStatus is the decision state of an approval
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalTargetVoucher is the target type used for voucher approvals
const ApprovalTargetVoucher = "voucher"

// Approval gates a target on a human decision
type Approval struct {
	shared.ScopedEntity
	TargetType string         `gorm:"type:varchar(32);not null;index:idx_ledger_approval_target,priority:1" json:"target_type"`
	TargetID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_ledger_approval_target,priority:2" json:"target_id"`
	Status     ApprovalStatus `gorm:"type:varchar(16);not null" json:"status"`
	DecidedBy  string         `gorm:"type:varchar(64)" json:"decided_by,omitempty"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
	Comment    string         `gorm:"type:text" json:"comment,omitempty"`
}

// TableName returns the table name for GORM
func (Approval) TableName() string {
	return "ledger_approvals"
}

// NewApproval creates a pending approval for a target
func NewApproval(scope shared.Scope, targetType string, targetID uuid.UUID) *Approval {
	return &Approval{
		ScopedEntity: shared.NewScopedEntity(scope),
		TargetType:   targetType,
		TargetID:     targetID,
		Status:       ApprovalPending,
	}
}

// Decide records an approve or reject decision on a pending approval
func (a *Approval) Decide(approve bool, actor, comment string, now time.Time) error {
	if a.Status != ApprovalPending {
		return shared.NewDomainError(shared.CodeInvalidInput, "approval has already been decided")
	}
	if approve {
		a.Status = ApprovalApproved
	} else {
		a.Status = ApprovalRejected
	}
	a.DecidedBy = actor
	a.DecidedAt = &now
	a.Comment = comment
	a.Touch(now)
	return nil
}

// Gate returns the error blocking confirmation, if any
func (a *Approval) Gate() error {
	switch a.Status {
	case ApprovalPending:
		return shared.NewDomainError(shared.CodeApprovalPending, "approval is still pending")
	case ApprovalRejected:
		return shared.NewDomainError(shared.CodeApprovalRejected, "approval was rejected")
	}
	return nil
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VoucherService drives the voucher lifecycle: draft, reviewed, confirmed,
// voided and archived.
type VoucherService struct {
	base
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *VoucherService {
	return &VoucherService{base: newBase(uow, settings, opts)}
}

// CreateVoucherRequest carries a voucher as entered by a caller. Status may ask
// for the voucher to be reviewed or confirmed right away; AutoConfirm is the
// same as Status confirmed.
type CreateVoucherRequest struct {
	Date        time.Time            `json:"date" validate:"required"`
	EntryType   ledger.EntryType     `json:"entry_type,omitempty" validate:"omitempty,oneof=normal adjustment"`
	Description string               `json:"description,omitempty"`
	Entries     []EntryInput         `json:"entries" validate:"required,min=1,dive"`
	Status      ledger.VoucherStatus `json:"status,omitempty" validate:"omitempty,oneof=draft reviewed confirmed"`
	AutoConfirm bool                 `json:"auto_confirm,omitempty"`
}

// VoucherResult is the outcome of a lifecycle operation
type VoucherResult struct {
	VoucherID   uuid.UUID            `json:"voucher_id"`
	VoucherNo   string               `json:"voucher_no"`
	Status      ledger.VoucherStatus `json:"status"`
	DebitTotal  decimal.Decimal      `json:"debit_total"`
	CreditTotal decimal.Decimal      `json:"credit_total"`
	Warnings    []string             `json:"warnings"`
}

func newVoucherResult(v *ledger.Voucher, warnings []string) *VoucherResult {
	if warnings == nil {
		warnings = []string{}
	}
	return &VoucherResult{
		VoucherID:   v.ID,
		VoucherNo:   v.VoucherNo,
		Status:      v.Status,
		DebitTotal:  v.TotalDebit,
		CreditTotal: v.TotalCredit,
		Warnings:    warnings,
	}
}

// Create builds and inserts a draft voucher, optionally reviewing and
// confirming it in the same transaction. An unbalanced voucher is rejected
// as a whole.
func (s *VoucherService) Create(ctx context.Context, req CreateVoucherRequest) (result *VoucherResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "create")
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "voucher.create", s.now(), &err)

	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, scope.TenantID,
		telemetry.SpanAttrOrgID, scope.OrgID,
		telemetry.SpanAttrEntries, len(req.Entries),
	)
	target := req.Status
	if req.AutoConfirm {
		target = ledger.VoucherStatusConfirmed
	}

	var created *ledger.Voucher
	err = s.uow.Do(ctx, func(repos ledger.Repositories) error {
		v, err := s.insert(ctx, repos, scope, req)
		if err != nil {
			return err
		}
		created = v

		var warnings []string
		if target == ledger.VoucherStatusReviewed || target == ledger.VoucherStatusConfirmed {
			if warnings, err = s.review(ctx, repos, v); err != nil {
				return err
			}
		}
		if target == ledger.VoucherStatusConfirmed {
			more, err := s.confirm(ctx, repos, v)
			switch {
			case shared.HasCode(err, shared.CodeApprovalPending):
				// stays reviewed until the approval is decided
				warnings = append(warnings, shared.CodeApprovalPending+": voucher "+v.VoucherNo+" awaits approval")
			case err != nil:
				return err
			}
			warnings = append(warnings, more...)
		}
		result = newVoucherResult(v, warnings)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrVoucherNo, created.VoucherNo)
	s.postedAfterCommit(ctx, created)
	logger.L(ctx).Info("Voucher created",
		zap.String("voucher_no", created.VoucherNo),
		zap.String("status", string(created.Status)),
	)
	return result, nil
}

// insert builds a draft from req and stores it
func (s *VoucherService) insert(ctx context.Context, repos ledger.Repositories, scope shared.Scope, req CreateVoucherRequest) (*ledger.Voucher, error) {
	if req.Date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "voucher date is required")
	}
	home, err := s.baseCurrency(ctx, repos, scope)
	if err != nil {
		return nil, err
	}
	built, err := newBuilder(repos, scope, home).Build(ctx, req.Date, req.Entries)
	if err != nil {
		return nil, err
	}
	no, err := nextVoucherNo(ctx, repos, scope, req.Date)
	if err != nil {
		return nil, err
	}
	v, err := ledger.NewVoucher(scope, no, req.Date, req.EntryType, ledger.SourceManual, req.Description, built.Entries)
	if err != nil {
		return nil, err
	}
	v.CreatedBy = shared.ActorFromContext(ctx)
	if err := repos.Vouchers().Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create voucher: %w", err)
	}
	if err := s.audit(ctx, repos, scope, ledger.AuditVoucherCreate, ledger.AggregateTypeVoucher, v.ID.String(), map[string]any{
		"voucher_no":   v.VoucherNo,
		"total_debit":  v.TotalDebit.StringFixed(2),
		"total_credit": v.TotalCredit.StringFixed(2),
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// review moves a draft to reviewed after the period check. Audit rules yield
// warnings, and a pending approval is opened when the amount needs one.
func (s *VoucherService) review(ctx context.Context, repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
	scope := v.Scope()
	if v.Status != ledger.VoucherStatusDraft {
		return nil, shared.NewDomainError(shared.CodeVoucherNotDraft, "only draft vouchers can be reviewed")
	}
	p, err := loadPeriod(ctx, repos, scope, v.Period)
	if err != nil {
		return nil, err
	}
	if err := p.CheckPosting(v.EntryType); err != nil {
		return nil, err
	}
	warnings, err := evaluateRules(ctx, repos, scope, v)
	if err != nil {
		return nil, err
	}

	if s.settings.approvalRequired(v.Amount()) {
		existing, err := repos.Approvals().FindByTarget(ctx, scope, ledger.ApprovalTargetVoucher, v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load approval: %w", err)
		}
		if existing == nil {
			if err := repos.Approvals().Save(ctx, ledger.NewApproval(scope, ledger.ApprovalTargetVoucher, v.ID)); err != nil {
				return nil, fmt.Errorf("failed to open approval: %w", err)
			}
		}
	}

	if err := v.Review(s.now()); err != nil {
		return nil, err
	}
	if err := repos.Vouchers().Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}
	detail := map[string]any{"voucher_no": v.VoucherNo}
	if len(warnings) > 0 {
		detail["warnings"] = warnings
	}
	if err := s.audit(ctx, repos, scope, ledger.AuditVoucherReview, ledger.AggregateTypeVoucher, v.ID.String(), detail); err != nil {
		return nil, err
	}
	return warnings, nil
}

// confirm posts a reviewed voucher. Every check runs before the first write.
func (s *VoucherService) confirm(ctx context.Context, repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
	scope := v.Scope()
	if v.Status != ledger.VoucherStatusReviewed {
		return nil, shared.NewDomainError(shared.CodeVoucherNotReviewed, "only reviewed vouchers can be confirmed")
	}
	p, err := loadPeriod(ctx, repos, scope, v.Period)
	if err != nil {
		return nil, err
	}
	if err := p.CheckPosting(v.EntryType); err != nil {
		return nil, err
	}
	approval, err := repos.Approvals().FindByTarget(ctx, scope, ledger.ApprovalTargetVoucher, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval != nil {
		if err := approval.Gate(); err != nil {
			return nil, err
		}
	}
	warnings, err := checkBudgets(ctx, repos, scope, v, s.settings.BudgetMode)
	if err != nil {
		return nil, err
	}

	if err := v.Confirm(s.now()); err != nil {
		return nil, err
	}
	if err := repos.Vouchers().Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}
	if err := s.post(ctx, repos, v, warnings); err != nil {
		return nil, err
	}
	return warnings, nil
}

// transition loads a voucher in the caller's scope and applies fn in one transaction
func (s *VoucherService) transition(ctx context.Context, operation string, id uuid.UUID, fn func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error)) (result *VoucherResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", operation)
	defer span.End()
	defer s.metrics.ObserveOperation(ctx, "voucher."+operation, s.now(), &err)

	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, scope.TenantID, telemetry.SpanAttrVoucherID, id.String())

	var touched *ledger.Voucher
	err = s.uow.Do(ctx, func(repos ledger.Repositories) error {
		v, err := loadVoucher(ctx, repos, scope, id)
		if err != nil {
			return err
		}
		warnings, err := fn(repos, v)
		if err != nil {
			return err
		}
		touched = v
		result = newVoucherResult(v, warnings)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.L(ctx).Info("Voucher "+operation,
		zap.String("voucher_no", touched.VoucherNo),
		zap.String("status", string(touched.Status)),
	)
	return result, nil
}

// Review moves a draft to reviewed
func (s *VoucherService) Review(ctx context.Context, id uuid.UUID) (*VoucherResult, error) {
	return s.transition(ctx, "review", id, func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
		return s.review(ctx, repos, v)
	})
}

// Revert moves a reviewed voucher back to draft
func (s *VoucherService) Revert(ctx context.Context, id uuid.UUID) (*VoucherResult, error) {
	return s.transition(ctx, "revert", id, func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
		if err := v.RevertToDraft(s.now()); err != nil {
			return nil, err
		}
		if err := repos.Vouchers().Update(ctx, v); err != nil {
			return nil, fmt.Errorf("failed to update voucher: %w", err)
		}
		return nil, s.audit(ctx, repos, v.Scope(), ledger.AuditVoucherRevert, ledger.AggregateTypeVoucher, v.ID.String(),
			map[string]any{"voucher_no": v.VoucherNo})
	})
}

// Confirm posts a reviewed voucher into the balance ledger
func (s *VoucherService) Confirm(ctx context.Context, id uuid.UUID) (*VoucherResult, error) {
	result, err := s.transition(ctx, "confirm", id, func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
		return s.confirm(ctx, repos, v)
	})
	if err == nil {
		s.metrics.VoucherPosted(ctx, shared.ScopeFromContext(ctx).TenantID, string(ledger.SourceManual))
	}
	return result, err
}

// Void reverses a confirmed voucher with a mirror voucher dated like the
// original, confirmed at once. The original keeps its history and is marked voided.
// An adjustment that was carried past a closed period is reversed where the carry
// landed, and its carry-forward voucher is voided with it.
func (s *VoucherService) Void(ctx context.Context, id uuid.UUID, reason string) (*VoucherResult, error) {
	var mirror *ledger.Voucher
	result, err := s.transition(ctx, "void", id, func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
		if v.Status != ledger.VoucherStatusConfirmed {
			return nil, shared.NewDomainError(shared.CodeVoidConfirmed, "voucher "+v.VoucherNo+" is "+string(v.Status)+" and cannot be voided")
		}
		if v.Source == ledger.SourceCarryForward {
			return nil, shared.NewDomainError(shared.CodeVoidConfirmed, "voucher "+v.VoucherNo+" is a carry-forward; void the voucher it carries")
		}
		scope := v.Scope()

		// a voucher carried past a closed period only reached balances through its carry-forward
		applied := v
		if v.CarriedForwardTo != nil {
			carried, err := loadVoucher(ctx, repos, scope, *v.CarriedForwardTo)
			if err != nil {
				return nil, err
			}
			if carried.Status != ledger.VoucherStatusConfirmed {
				return nil, shared.NewDomainError(shared.CodeVoidConfirmed, "carry-forward voucher "+carried.VoucherNo+" is "+string(carried.Status)+" and cannot be voided")
			}
			applied = carried
		}
		p, err := loadPeriod(ctx, repos, scope, applied.Period)
		if err != nil {
			return nil, err
		}
		if err := p.CheckPosting(applied.EntryType); err != nil {
			return nil, err
		}

		no, err := nextVoucherNo(ctx, repos, scope, applied.Date)
		if err != nil {
			return nil, err
		}
		m, err := applied.BuildMirror(no, "void "+v.VoucherNo+": "+reason)
		if err != nil {
			return nil, err
		}
		m.CreatedBy = shared.ActorFromContext(ctx)
		now := s.now()
		if err := m.ConfirmSystem(now); err != nil {
			return nil, err
		}
		if err := repos.Vouchers().Create(ctx, m); err != nil {
			return nil, fmt.Errorf("failed to create mirror voucher: %w", err)
		}
		if err := s.post(ctx, repos, m, nil); err != nil {
			return nil, err
		}

		if applied != v {
			if err := applied.MarkVoided(reason, m.ID, now); err != nil {
				return nil, err
			}
			if err := repos.Vouchers().Update(ctx, applied); err != nil {
				return nil, fmt.Errorf("failed to update carry-forward voucher: %w", err)
			}
		}
		if err := v.MarkVoided(reason, m.ID, now); err != nil {
			return nil, err
		}
		if err := repos.Vouchers().Update(ctx, v); err != nil {
			return nil, fmt.Errorf("failed to update voucher: %w", err)
		}
		detail := map[string]any{
			"voucher_no":        v.VoucherNo,
			"mirror_voucher_no": m.VoucherNo,
			"reason":            reason,
		}
		if applied != v {
			detail["carry_forward_voucher_no"] = applied.VoucherNo
		}
		if err := s.audit(ctx, repos, scope, ledger.AuditVoucherVoid, ledger.AggregateTypeVoucher, v.ID.String(), detail); err != nil {
			return nil, err
		}
		mirror = m
		return nil, publish(ctx, repos, ledger.NewVoucherVoidedEvent(v, m))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.VoucherVoided(ctx, mirror.TenantID)
	s.postedAfterCommit(ctx, mirror)
	return result, nil
}

// Delete physically removes a draft voucher
func (s *VoucherService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.transition(ctx, "delete", id, func(repos ledger.Repositories, v *ledger.Voucher) ([]string, error) {
		if err := v.CanDelete(); err != nil {
			return nil, err
		}
		if err := repos.Vouchers().Delete(ctx, v); err != nil {
			return nil, fmt.Errorf("failed to delete voucher: %w", err)
		}
		return nil, s.audit(ctx, repos, v.Scope(), ledger.AuditVoucherDelete, ledger.AggregateTypeVoucher, v.ID.String(),
			map[string]any{"voucher_no": v.VoucherNo})
	})
	return err
}

// ArchiveResult lists the vouchers moved to archived
type ArchiveResult struct {
	BeforePeriod string   `json:"before_period"`
	Archived     int      `json:"archived"`
	VoucherNos   []string `json:"voucher_nos"`
}

// Archive archives every confirmed voucher of periods before beforePeriod
func (s *VoucherService) Archive(ctx context.Context, beforePeriod string) (*ArchiveResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "archive")
	defer span.End()

	if _, err := ledger.ParsePeriod(beforePeriod); err != nil {
		return nil, err
	}
	scope := shared.ScopeFromContext(ctx)
	result := &ArchiveResult{BeforePeriod: beforePeriod, VoucherNos: []string{}}
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		vouchers, err := repos.Vouchers().FindArchivable(ctx, scope, beforePeriod)
		if err != nil {
			return fmt.Errorf("failed to load archivable vouchers: %w", err)
		}
		now := s.now()
		for i := range vouchers {
			v := &vouchers[i]
			if err := v.Archive(now); err != nil {
				return err
			}
			if err := repos.Vouchers().Update(ctx, v); err != nil {
				return fmt.Errorf("failed to archive voucher %s: %w", v.VoucherNo, err)
			}
			if err := s.audit(ctx, repos, scope, ledger.AuditVoucherArchive, ledger.AggregateTypeVoucher, v.ID.String(),
				map[string]any{"voucher_no": v.VoucherNo}); err != nil {
				return err
			}
			result.VoucherNos = append(result.VoucherNos, v.VoucherNo)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Archived = len(result.VoucherNos)
	return result, nil
}

// Get returns a voucher of the caller's scope. A voucher owned by another
// scope is reported exactly like a missing one, and the attempt is audited.
func (s *VoucherService) Get(ctx context.Context, id uuid.UUID) (*ledger.Voucher, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "get")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var found *ledger.Voucher
	foreign := false
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		v, err := repos.Vouchers().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load voucher: %w", err)
		}
		if v != nil && !v.BelongsTo(scope) {
			foreign = true
			return nil
		}
		found = v
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if foreign {
		// written in its own transaction: the read above has nothing to roll back
		auditErr := s.uow.Do(ctx, func(repos ledger.Repositories) error {
			return s.audit(ctx, repos, scope, ledger.AuditVoucherAccessDenied, ledger.AggregateTypeVoucher, id.String(), map[string]any{
				"tenant_id": scope.TenantID,
				"org_id":    scope.OrgID,
			})
		})
		if auditErr != nil {
			logger.L(ctx).Error("Failed to audit denied voucher access", zap.Error(auditErr))
		}
		logger.L(ctx).Warn("Cross-scope voucher access denied", zap.String("voucher_id", id.String()))
	}
	if found == nil {
		return nil, voucherNotFound(id)
	}
	return found, nil
}

// List returns a page of the caller's vouchers
func (s *VoucherService) List(ctx context.Context, filter ledger.VoucherFilter) (shared.Paginated[ledger.Voucher], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "list")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	filter.Filter = filter.Filter.Normalize()
	if filter.Period != "" {
		if _, err := ledger.ParsePeriod(filter.Period); err != nil {
			return shared.Paginated[ledger.Voucher]{}, err
		}
	}
	var (
		items []ledger.Voucher
		total int64
	)
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		var err error
		items, total, err = repos.Vouchers().List(ctx, scope, filter)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[ledger.Voucher]{}, fmt.Errorf("failed to list vouchers: %w", err)
	}
	if items == nil {
		items = []ledger.Voucher{}
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// Decide approves or rejects the pending approval of a voucher
func (s *VoucherService) Decide(ctx context.Context, id uuid.UUID, approve bool, comment string) (*ledger.Approval, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "voucher", "decide_approval")
	defer span.End()

	scope := shared.ScopeFromContext(ctx)
	var approval *ledger.Approval
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		v, err := loadVoucher(ctx, repos, scope, id)
		if err != nil {
			return err
		}
		approval, err = repos.Approvals().FindByTarget(ctx, scope, ledger.ApprovalTargetVoucher, v.ID)
		if err != nil {
			return fmt.Errorf("failed to load approval: %w", err)
		}
		if approval == nil {
			return shared.NewDomainError(shared.CodeNotFound, "voucher "+v.VoucherNo+" has no approval")
		}
		actor := shared.ActorFromContext(ctx)
		if err := approval.Decide(approve, actor, comment, s.now()); err != nil {
			return err
		}
		if err := repos.Approvals().Save(ctx, approval); err != nil {
			return fmt.Errorf("failed to save approval: %w", err)
		}
		return s.audit(ctx, repos, scope, ledger.AuditApprovalDecide, ledger.AggregateTypeVoucher, v.ID.String(), map[string]any{
			"voucher_no": v.VoucherNo,
			"status":     approval.Status,
			"comment":    comment,
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return approval, nil
}


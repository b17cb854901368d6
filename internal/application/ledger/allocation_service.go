package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllocationService moves service-department costs onto operating departments
type AllocationService struct {
	base
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(uow ledger.UnitOfWork, settings Settings, opts ...Option) *AllocationService {
	return &AllocationService{base: newBase(uow, settings, opts)}
}

// AllocationStep empties one department into its targets by weight
type AllocationStep struct {
	From string                     `json:"from" validate:"required"`
	To   map[string]decimal.Decimal `json:"to" validate:"required,min=1"`
}

// AllocateRequest describes a step allocation for one period. Steps run in
// the given order; costs a department received in an earlier step move on
// with its own costs. AccountCodes limits the expense accounts involved.
type AllocateRequest struct {
	Period       string           `json:"period" validate:"required"`
	AccountCodes []string         `json:"account_codes,omitempty"`
	Steps        []AllocationStep `json:"steps" validate:"required,min=1,dive"`
	Description  string           `json:"description,omitempty"`
}

// AllocationShare is the amount one step moved from one department to another
type AllocationShare struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	AccountCode string          `json:"account_code"`
	Amount      decimal.Decimal `json:"amount"`
}

// AllocationResult reports what was moved and the voucher that moved it
type AllocationResult struct {
	Period    string            `json:"period"`
	Shares    []AllocationShare `json:"shares"`
	Total     decimal.Decimal   `json:"total"`
	VoucherID *uuid.UUID        `json:"voucher_id,omitempty"`
	VoucherNo string            `json:"voucher_no,omitempty"`
}

type costSeries struct {
	account string
	dims    ledger.DimensionKey
}

type weightedTarget struct {
	code   string
	dim    *ledger.Dimension
	weight decimal.Decimal
}

// Allocate runs the step method once over the period's expense balances and
// posts the movements as one confirmed allocation voucher. A department that
// has been emptied cannot receive costs again.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate")
	defer span.End()
	started := s.now()

	if _, err := ledger.ParsePeriod(req.Period); err != nil {
		return nil, err
	}
	if len(req.Steps) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "at least one allocation step is required")
	}
	scope := shared.ScopeFromContext(ctx)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, scope.TenantID,
		telemetry.SpanAttrPeriod, req.Period,
		"steps", len(req.Steps),
	)

	result := &AllocationResult{Period: req.Period, Shares: []AllocationShare{}, Total: decimal.Zero}
	var posted *ledger.Voucher
	err := s.uow.Do(ctx, func(repos ledger.Repositories) error {
		p, err := loadPeriod(ctx, repos, scope, req.Period)
		if err != nil {
			return err
		}
		if err := p.CheckPosting(ledger.EntryTypeNormal); err != nil {
			return err
		}
		home, err := s.baseCurrency(ctx, repos, scope)
		if err != nil {
			return err
		}
		accounts, err := s.allocatable(ctx, repos, scope, req.AccountCodes)
		if err != nil {
			return err
		}

		rows, err := repos.Balances().FindByPeriod(ctx, scope, req.Period)
		if err != nil {
			return fmt.Errorf("failed to load balances: %w", err)
		}
		// only the period's own movement is allocated; openings belong to earlier periods
		pool := make(map[costSeries]decimal.Decimal)
		for i := range rows {
			b := &rows[i]
			direction, ok := accounts[b.AccountCode]
			if !ok || b.DepartmentID == uuid.Nil {
				continue
			}
			movement := direction.Net(b.DebitAmount, b.CreditAmount)
			if movement.IsZero() {
				continue
			}
			k := costSeries{account: b.AccountCode, dims: b.Dims()}
			pool[k] = pool[k].Add(movement)
		}

		emptied := make(map[uuid.UUID]string)
		var lines []ledger.VoucherEntry
		for i, step := range req.Steps {
			source, err := findDepartment(ctx, repos, scope, step.From)
			if err != nil {
				return err
			}
			targets, err := s.targets(ctx, repos, scope, i, step, emptied)
			if err != nil {
				return err
			}
			emptied[source.ID] = source.Code

			moved := drain(pool, source.ID)
			for _, k := range sortedSeries(moved) {
				amount := moved[k]
				lines = append(lines, costLine(k.account, k.dims, amount.Neg(), "allocation from "+source.Code))
			}

			for _, account := range sortedAccounts(moved) {
				total := decimal.Zero
				for k, amount := range moved {
					if k.account == account {
						total = total.Add(amount)
					}
				}
				for j, share := range split(total, targets, home) {
					if share.IsZero() {
						continue
					}
					dims := ledger.DimensionKey{}
					dims.Set(ledger.DimensionDepartment, targets[j].dim.ID)
					k := costSeries{account: account, dims: dims}
					pool[k] = pool[k].Add(share)
					lines = append(lines, costLine(account, dims, share, "allocation to "+targets[j].code))
					result.Shares = append(result.Shares, AllocationShare{
						From:        source.Code,
						To:          targets[j].code,
						AccountCode: account,
						Amount:      share,
					})
					result.Total = result.Total.Add(share)
				}
			}
		}
		if len(lines) == 0 {
			return nil
		}

		desc := req.Description
		if desc == "" {
			desc = "cost allocation " + req.Period
		}
		posted, err = s.postSystemVoucher(ctx, repos, scope, ledger.PeriodEnd(req.Period), ledger.SourceAllocation, desc, lines)
		if err != nil {
			return err
		}
		result.VoucherID = &posted.ID
		result.VoucherNo = posted.VoucherNo
		return s.audit(ctx, repos, scope, ledger.AuditCostAllocate, ledger.AggregateTypePeriod, req.Period, map[string]any{
			"voucher_no": posted.VoucherNo,
			"steps":      len(req.Steps),
			"total":      result.Total.StringFixed(2),
		})
	})
	s.metrics.ObserveOperation(ctx, "cost.allocate", started, &err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.postedAfterCommit(ctx, posted)
	logger.L(ctx).Info("Cost allocation completed",
		zap.String("period", req.Period),
		zap.Int("shares", len(result.Shares)),
		zap.String("total", result.Total.StringFixed(2)),
	)
	return result, nil
}

// allocatable returns the direction of each expense account in scope, limited to codes when given
func (s *AllocationService) allocatable(ctx context.Context, repos ledger.Repositories, scope shared.Scope, codes []string) (map[string]ledger.Direction, error) {
	chart, err := loadChart(ctx, repos, scope)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ledger.Direction)
	if len(codes) == 0 {
		for code, a := range chart {
			if a.Type == ledger.AccountTypeExpense {
				out[code] = a.Direction
			}
		}
		return out, nil
	}
	for _, code := range codes {
		a := chart[code]
		if a == nil {
			return nil, shared.NewDomainError(shared.CodeAccountNotFound, "account not found: "+code)
		}
		if a.Type != ledger.AccountTypeExpense {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "only expense accounts can be allocated: "+code)
		}
		out[code] = a.Direction
	}
	return out, nil
}

// targets resolves a step's receiving departments in code order
func (s *AllocationService) targets(ctx context.Context, repos ledger.Repositories, scope shared.Scope, index int, step AllocationStep, emptied map[uuid.UUID]string) ([]weightedTarget, error) {
	if len(step.To) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("step %d has no target departments", index+1))
	}
	codes := make([]string, 0, len(step.To))
	for code := range step.To {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]weightedTarget, 0, len(codes))
	sum := decimal.Zero
	for _, code := range codes {
		w := step.To[code]
		if !w.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("step %d weight for %s must be positive", index+1, code))
		}
		if code == step.From {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("step %d allocates %s to itself", index+1, code))
		}
		dim, err := findDepartment(ctx, repos, scope, code)
		if err != nil {
			return nil, err
		}
		if _, done := emptied[dim.ID]; done {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("step %d allocates to %s, which an earlier step already emptied", index+1, code)).
				WithDetails(map[string]any{"step": index + 1, "department": code})
		}
		out = append(out, weightedTarget{code: code, dim: dim, weight: w})
		sum = sum.Add(w)
	}
	for i := range out {
		out[i].weight = out[i].weight.Div(sum)
	}
	return out, nil
}

func findDepartment(ctx context.Context, repos ledger.Repositories, scope shared.Scope, code string) (*ledger.Dimension, error) {
	dim, err := repos.Dimensions().FindByCode(ctx, scope, ledger.DimensionDepartment, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load department %s: %w", code, err)
	}
	if dim == nil {
		return nil, shared.NewDomainError(shared.CodeDimensionNotFound, "department not found: "+code).
			WithDetails(map[string]any{"dimension_type": ledger.DimensionDepartment, "code": code})
	}
	return dim, nil
}

// drain removes and returns every series of the department
func drain(pool map[costSeries]decimal.Decimal, department uuid.UUID) map[costSeries]decimal.Decimal {
	out := make(map[costSeries]decimal.Decimal)
	for k, amount := range pool {
		if k.dims.DepartmentID != department {
			continue
		}
		delete(pool, k)
		if !amount.IsZero() {
			out[k] = amount
		}
	}
	return out
}

// split divides amount by the normalized weights; the last target absorbs rounding
func split(amount decimal.Decimal, targets []weightedTarget, currency string) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(targets))
	rest := amount
	for i, t := range targets {
		if i == len(targets)-1 {
			shares[i] = rest
			break
		}
		shares[i] = ledger.RoundAmount(amount.Mul(t.weight), currency)
		rest = rest.Sub(shares[i])
	}
	return shares
}

// costLine books a signed expense movement: positive debits, negative credits
func costLine(account string, dims ledger.DimensionKey, amount decimal.Decimal, desc string) ledger.VoucherEntry {
	e := ledger.VoucherEntry{
		AccountCode:  account,
		Description:  desc,
		DebitAmount:  decimal.Zero,
		CreditAmount: decimal.Zero,
		DimensionKey: dims,
	}
	if amount.IsNegative() {
		e.CreditAmount = amount.Neg()
	} else {
		e.DebitAmount = amount
	}
	return e
}

func sortedSeries(m map[costSeries]decimal.Decimal) []costSeries {
	keys := make([]costSeries, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		return dimsOrder(keys[i].dims) < dimsOrder(keys[j].dims)
	})
	return keys
}

func dimsOrder(k ledger.DimensionKey) string {
	var out string
	for _, t := range ledger.AllDimensionTypes {
		out += k.Get(t).String()
	}
	return out
}

func sortedAccounts(m map[costSeries]decimal.Decimal) []string {
	seen := make(map[string]bool)
	var out []string
	for k := range m {
		if !seen[k.account] {
			seen[k.account] = true
			out = append(out, k.account)
		}
	}
	sort.Strings(out)
	return out
}

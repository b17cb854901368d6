package consolidation

import (
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerInput is one member ledger's balances in its own base currency
type LedgerInput struct {
	Company      string
	BaseCurrency string
	Balances     []report.AccountBalance
}

// RateFunc returns the multiplier converting one unit of from into to for rateType
type RateFunc func(from, to string, rateType ledger.RateType) (decimal.Decimal, error)

// Request is the input of one consolidation run
type Request struct {
	Period        string
	GroupCurrency string
	Rule          *Rule
	Ledgers       []LedgerInput
	Rates         RateFunc
	Template      *report.Template
}

// Adjustment records how one balance changed under an elimination
type Adjustment struct {
	AccountCode string          `json:"account_code"`
	Before      decimal.Decimal `json:"before"`
	After       decimal.Decimal `json:"after"`
}

// EliminationEntry is the record of one applied elimination pair
type EliminationEntry struct {
	Name   string          `json:"name"`
	Field  Field           `json:"field"`
	Amount decimal.Decimal `json:"amount"`
	Left   []Adjustment    `json:"left"`
	Right  []Adjustment    `json:"right"`
}

// Result is a consolidated group statement
type Result struct {
	Period        string                  `json:"period"`
	GroupCurrency string                  `json:"group_currency"`
	Companies     []string                `json:"companies"`
	Balances      []report.AccountBalance `json:"balances"`
	Eliminations  []EliminationEntry      `json:"eliminations"`
	Totals        report.Totals           `json:"totals"`
	FxTranslation decimal.Decimal         `json:"fx_translation"`
	IsBalanced    bool                    `json:"is_balanced"`
	Fields        []report.FieldValue     `json:"fields,omitempty"`
}

// ResolveGroupCurrency picks the reporting currency: explicit, then the rule's,
// then the single base currency shared by every ledger.
func ResolveGroupCurrency(explicit string, rule *Rule, ledgers []LedgerInput) (string, error) {
	if explicit != "" {
		return ledger.NormalizeCurrency(explicit)
	}
	if rule != nil && rule.GroupCurrency != "" {
		return rule.GroupCurrency, nil
	}
	common := ""
	for _, l := range ledgers {
		if common == "" {
			common = l.BaseCurrency
			continue
		}
		if l.BaseCurrency != common {
			common = ""
			break
		}
	}
	if common == "" {
		return "", shared.NewDomainError(shared.CodeGroupCurrencyRequired,
			"ledgers use different base currencies; a group currency is required")
	}
	return common, nil
}

// Consolidate runs translation, ownership scaling, aggregation, eliminations,
// totals and the optional template.
func Consolidate(req Request) (*Result, error) {
	if len(req.Ledgers) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "consolidation needs at least one ledger")
	}
	group, err := ResolveGroupCurrency(req.GroupCurrency, req.Rule, req.Ledgers)
	if err != nil {
		return nil, err
	}

	policy := ledger.DefaultRatePolicy()
	if req.Rule != nil {
		policy = policy.Merge(req.Rule.RatePolicy)
	}

	result := &Result{
		Period:        req.Period,
		GroupCurrency: group,
		Eliminations:  []EliminationEntry{},
	}

	merged := make(map[string]*report.AccountBalance)
	var order []string
	for _, l := range req.Ledgers {
		result.Companies = append(result.Companies, l.Company)
		translated, err := Translate(l, group, policy, req.Rates)
		if err != nil {
			return nil, err
		}
		share := req.Rule.OwnershipOf(l.Company)
		for _, b := range translated {
			scaled := scale(b, share)
			if existing, ok := merged[b.Code]; ok {
				existing.Opening = existing.Opening.Add(scaled.Opening)
				existing.Debit = existing.Debit.Add(scaled.Debit)
				existing.Credit = existing.Credit.Add(scaled.Credit)
				existing.Closing = existing.Closing.Add(scaled.Closing)
				continue
			}
			copied := scaled
			merged[b.Code] = &copied
			order = append(order, b.Code)
		}
	}

	balances := make([]report.AccountBalance, 0, len(order))
	for _, code := range order {
		balances = append(balances, *merged[code])
	}
	report.SortByCode(balances)

	if req.Rule != nil {
		for _, pair := range req.Rule.Eliminations {
			entry, err := Eliminate(balances, pair)
			if err != nil {
				return nil, err
			}
			result.Eliminations = append(result.Eliminations, entry)
		}
	}

	result.Balances = balances
	result.Totals = report.ComputeTotals(balances)
	result.FxTranslation = result.Totals.FxTranslation
	result.IsBalanced = result.Totals.IsBalanced

	if req.Template != nil {
		fields, err := req.Template.Evaluate(report.Context(result.Totals, balances))
		if err != nil {
			return nil, err
		}
		result.Fields = fields
	}
	return result, nil
}

// Translate converts a ledger's balances into the group currency using the
// rate type the policy assigns to each account type.
func Translate(l LedgerInput, group string, policy ledger.RatePolicy, rates RateFunc) ([]report.AccountBalance, error) {
	out := make([]report.AccountBalance, len(l.Balances))
	if l.BaseCurrency == group {
		copy(out, l.Balances)
		return out, nil
	}
	if rates == nil {
		return nil, shared.NewDomainError(shared.CodeFxRateNotFound, "no rate source for "+l.BaseCurrency+"/"+group)
	}

	cache := make(map[ledger.RateType]decimal.Decimal)
	for i, b := range l.Balances {
		out[i] = b
		if isZero(b) {
			continue
		}
		rateType := policy.RateFor(b.Type)
		rate, ok := cache[rateType]
		if !ok {
			var err error
			rate, err = rates(l.BaseCurrency, group, rateType)
			if err != nil {
				return nil, err
			}
			cache[rateType] = rate
		}
		out[i].Opening = b.Opening.Mul(rate)
		out[i].Debit = b.Debit.Mul(rate)
		out[i].Credit = b.Credit.Mul(rate)
		out[i].Closing = b.Closing.Mul(rate)
	}
	return out, nil
}

func isZero(b report.AccountBalance) bool {
	return b.Opening.IsZero() && b.Debit.IsZero() && b.Credit.IsZero() && b.Closing.IsZero()
}

func scale(b report.AccountBalance, share decimal.Decimal) report.AccountBalance {
	if share.Equal(decimal.NewFromInt(1)) {
		return b
	}
	b.Opening = b.Opening.Mul(share)
	b.Debit = b.Debit.Mul(share)
	b.Credit = b.Credit.Mul(share)
	b.Closing = b.Closing.Mul(share)
	return b
}

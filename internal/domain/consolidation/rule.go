// Package consolidation merges several ledgers into one group statement:
// currency translation, ownership scaling, aggregation and inter-company
// eliminations.
package consolidation

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/report"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Field selects which numeric field of a balance an elimination works on
type Field string

const (
	FieldOpening Field = "opening"
	FieldDebit   Field = "debit"
	FieldCredit  Field = "credit"
	FieldClosing Field = "closing"
)

func (f Field) get(b *report.AccountBalance) decimal.Decimal {
	switch f {
	case FieldOpening:
		return b.Opening
	case FieldDebit:
		return b.Debit
	case FieldCredit:
		return b.Credit
	default:
		return b.Closing
	}
}

func (f Field) set(b *report.AccountBalance, v decimal.Decimal) {
	switch f {
	case FieldOpening:
		b.Opening = v
	case FieldDebit:
		b.Debit = v
	case FieldCredit:
		b.Credit = v
	default:
		b.Closing = v
	}
}

// Matcher selects balances by explicit codes, code prefixes or account types.
// A balance matches when any configured criterion matches.
type Matcher struct {
	Codes    []string             `json:"codes,omitempty"`
	Prefixes []string             `json:"prefixes,omitempty"`
	Types    []ledger.AccountType `json:"types,omitempty"`
}

func (m Matcher) isEmpty() bool {
	return len(m.Codes) == 0 && len(m.Prefixes) == 0 && len(m.Types) == 0
}

// Matches reports whether b is selected
func (m Matcher) Matches(b report.AccountBalance) bool {
	for _, c := range m.Codes {
		if b.Code == c {
			return true
		}
	}
	for _, p := range m.Prefixes {
		if strings.HasPrefix(b.Code, p) {
			return true
		}
	}
	for _, t := range m.Types {
		if b.Type == t {
			return true
		}
	}
	return false
}

// EliminationPair removes an inter-company relationship between two sets of balances
type EliminationPair struct {
	Name  string  `json:"name"`
	Left  Matcher `json:"left"`
	Right Matcher `json:"right"`
	Field Field   `json:"field,omitempty"`
}

// Rule is a consolidation rule bundle
type Rule struct {
	GroupCurrency string                     `json:"group_currency,omitempty"`
	Ownership     map[string]decimal.Decimal `json:"ownership,omitempty"`
	RatePolicy    ledger.RatePolicy          `json:"rate_policy,omitempty"`
	Eliminations  []EliminationPair          `json:"eliminations,omitempty"`
}

func invalidRule(msg string) error {
	return shared.NewDomainError(shared.CodeInvalidEliminationRule, msg)
}

// ParseRule decodes a JSON rule bundle and validates it once
func ParseRule(body []byte) (*Rule, error) {
	var r Rule
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidJSON, "consolidation rule is not valid JSON: "+err.Error())
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the bundle and fills defaults
func (r *Rule) Validate() error {
	if r.GroupCurrency != "" {
		code, err := ledger.NormalizeCurrency(r.GroupCurrency)
		if err != nil {
			return err
		}
		r.GroupCurrency = code
	}
	for company, share := range r.Ownership {
		if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
			return invalidRule("ownership of " + company + " must be between 0 and 1")
		}
	}
	for accountType, rateType := range r.RatePolicy {
		if !accountType.IsValid() || !rateType.IsValid() {
			return invalidRule("rate policy maps " + string(accountType) + " to " + string(rateType))
		}
	}
	for i := range r.Eliminations {
		pair := &r.Eliminations[i]
		if pair.Field == "" {
			pair.Field = FieldClosing
		}
		switch pair.Field {
		case FieldOpening, FieldDebit, FieldCredit, FieldClosing:
		default:
			return invalidRule("elimination " + pair.Name + " has unknown field " + string(pair.Field))
		}
		if pair.Left.isEmpty() || pair.Right.isEmpty() {
			return invalidRule("elimination " + pair.Name + " needs both a left and a right side")
		}
		for _, t := range append(append([]ledger.AccountType{}, pair.Left.Types...), pair.Right.Types...) {
			if !t.IsValid() {
				return invalidRule("elimination " + pair.Name + " has unknown account type " + string(t))
			}
		}
		for _, c := range pair.Left.Codes {
			for _, other := range pair.Right.Codes {
				if c == other {
					return invalidRule("elimination " + pair.Name + " lists account " + c + " on both sides")
				}
			}
		}
	}
	return nil
}

// OwnershipOf returns the ownership fraction of a company, 1 when unset
func (r *Rule) OwnershipOf(company string) decimal.Decimal {
	if r != nil {
		if share, ok := r.Ownership[company]; ok {
			return share
		}
	}
	return decimal.NewFromInt(1)
}

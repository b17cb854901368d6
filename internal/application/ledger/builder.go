package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryInput is one caller-supplied voucher line before normalization.
// Account is an account code or an exact account name. Dimensions maps a
// dimension type to a dimension code.
type EntryInput struct {
	Account       string                          `json:"account" validate:"required"`
	Description   string                          `json:"description,omitempty"`
	Debit         decimal.Decimal                 `json:"debit"`
	Credit        decimal.Decimal                 `json:"credit"`
	CurrencyCode  string                          `json:"currency,omitempty"`
	FxRate        decimal.Decimal                 `json:"fx_rate"`
	ForeignDebit  decimal.Decimal                 `json:"foreign_debit"`
	ForeignCredit decimal.Decimal                 `json:"foreign_credit"`
	Dimensions    map[ledger.DimensionType]string `json:"dimensions,omitempty"`
}

// BuiltEntries is the normalized form of a voucher's lines
type BuiltEntries struct {
	Entries     []ledger.VoucherEntry
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// builder resolves account tokens, dimension codes and currency amounts
// against one ledger inside the caller's transaction
type builder struct {
	repos    ledger.Repositories
	scope    shared.Scope
	home     string
	resolver rateResolver
}

func newBuilder(repos ledger.Repositories, scope shared.Scope, home string) *builder {
	return &builder{
		repos:    repos,
		scope:    scope,
		home:     home,
		resolver: newRateResolver(repos, scope),
	}
}

// Build normalizes every line. It fails on the first invalid line; balance is
// checked by the voucher itself.
func (b *builder) Build(ctx context.Context, date time.Time, inputs []EntryInput) (*BuiltEntries, error) {
	if len(inputs) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "voucher must have at least one entry")
	}
	out := &BuiltEntries{
		Entries:     make([]ledger.VoucherEntry, 0, len(inputs)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for i, in := range inputs {
		entry, err := b.line(ctx, date, i+1, in)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, *entry)
		out.TotalDebit = out.TotalDebit.Add(entry.DebitAmount)
		out.TotalCredit = out.TotalCredit.Add(entry.CreditAmount)
	}
	return out, nil
}

func lineError(code string, lineNo int, msg string) error {
	return shared.NewDomainError(code, fmt.Sprintf("line %d: %s", lineNo, msg)).
		WithDetails(map[string]any{"line_no": lineNo})
}

func (b *builder) line(ctx context.Context, date time.Time, lineNo int, in EntryInput) (*ledger.VoucherEntry, error) {
	account, err := b.account(ctx, lineNo, in.Account)
	if err != nil {
		return nil, err
	}

	for _, amount := range []decimal.Decimal{in.Debit, in.Credit, in.ForeignDebit, in.ForeignCredit, in.FxRate} {
		if amount.IsNegative() {
			return nil, lineError(shared.CodeInvalidAmount, lineNo, "amounts cannot be negative")
		}
	}

	entry := &ledger.VoucherEntry{
		AccountCode:   account.Code,
		Description:   in.Description,
		DebitAmount:   in.Debit.Round(2),
		CreditAmount:  in.Credit.Round(2),
		CurrencyCode:  b.home,
		FxRate:        decimal.NewFromInt(1),
		ForeignDebit:  decimal.Zero,
		ForeignCredit: decimal.Zero,
	}

	for dimType, code := range in.Dimensions {
		if code == "" {
			continue
		}
		if !dimType.IsValid() {
			return nil, lineError(shared.CodeInvalidInput, lineNo, "unknown dimension type "+string(dimType))
		}
		dim, err := b.repos.Dimensions().FindByCode(ctx, b.scope, dimType, code)
		if err != nil {
			return nil, fmt.Errorf("failed to load dimension %s/%s: %w", dimType, code, err)
		}
		if dim == nil {
			return nil, lineError(shared.CodeDimensionNotFound, lineNo, fmt.Sprintf("%s %q not found", dimType, code))
		}
		entry.DimensionKey.Set(dimType, dim.ID)
	}

	if in.CurrencyCode != "" {
		currency, err := ledger.NormalizeCurrency(in.CurrencyCode)
		if err != nil {
			return nil, lineError(shared.CodeInvalidCurrency, lineNo, "unknown currency code "+in.CurrencyCode)
		}
		if currency != b.home {
			if err := b.foreign(ctx, date, lineNo, currency, in, entry); err != nil {
				return nil, err
			}
		}
	}

	if entry.DebitAmount.IsZero() && entry.CreditAmount.IsZero() {
		return nil, lineError(shared.CodeInvalidAmount, lineNo, "debit and credit are both zero")
	}
	return entry, nil
}

// account resolves a token by exact code, then by exact name
func (b *builder) account(ctx context.Context, lineNo int, token string) (*ledger.Account, error) {
	accounts := b.repos.Accounts()
	account, err := accounts.FindByCode(ctx, b.scope, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %q: %w", token, err)
	}
	if account == nil {
		account, err = accounts.FindByName(ctx, b.scope, token)
		if err != nil {
			return nil, fmt.Errorf("failed to load account %q: %w", token, err)
		}
	}
	if account == nil {
		return nil, lineError(shared.CodeAccountNotFound, lineNo, fmt.Sprintf("account %q not found", token))
	}
	if !account.Enabled {
		return nil, lineError(shared.CodeAccountDisabled, lineNo, "account "+account.Code+" is disabled")
	}
	return account, nil
}

// foreign fills the foreign-currency side of a line. Home amounts not given
// are derived as foreign x rate, rounded to cents; a missing rate is looked up.
func (b *builder) foreign(ctx context.Context, date time.Time, lineNo int, currency string, in EntryInput, entry *ledger.VoucherEntry) error {
	entry.CurrencyCode = currency
	entry.ForeignDebit = in.ForeignDebit
	entry.ForeignCredit = in.ForeignCredit

	homeGiven := !entry.DebitAmount.IsZero() || !entry.CreditAmount.IsZero()
	foreignGiven := !in.ForeignDebit.IsZero() || !in.ForeignCredit.IsZero()

	rate := in.FxRate
	if rate.IsZero() {
		switch {
		case foreignGiven && homeGiven:
			foreignAmount := decimal.Max(in.ForeignDebit, in.ForeignCredit)
			homeAmount := decimal.Max(entry.DebitAmount, entry.CreditAmount)
			rate = homeAmount.DivRound(foreignAmount, 8)
		case foreignGiven:
			looked, err := b.resolver.Rate(ctx, currency, b.home, ledger.RateSpot, date)
			if err != nil {
				if shared.HasCode(err, shared.CodeFxRateNotFound) {
					return lineError(shared.CodeFxRateNotFound, lineNo, fmt.Sprintf("no rate for %s/%s", currency, b.home))
				}
				return err
			}
			rate = looked
		default:
			rate = decimal.NewFromInt(1)
		}
	}
	entry.FxRate = rate

	if !homeGiven {
		entry.DebitAmount = in.ForeignDebit.Mul(rate).Round(2)
		entry.CreditAmount = in.ForeignCredit.Mul(rate).Round(2)
	}
	return nil
}

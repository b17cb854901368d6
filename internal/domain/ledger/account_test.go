package ledger

import (
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	scope := shared.NewScope("", "")

	t.Run("defaults direction from type", func(t *testing.T) {
		cash, err := NewAccount(scope, "1001", "Cash", AccountTypeAsset, "", nil)
		require.NoError(t, err)
		assert.Equal(t, DirectionDebit, cash.Direction)
		assert.True(t, cash.Enabled)

		revenue, err := NewAccount(scope, "6001", "Revenue", AccountTypeRevenue, "", nil)
		require.NoError(t, err)
		assert.Equal(t, DirectionCredit, revenue.Direction)
	})

	t.Run("contra account keeps explicit direction", func(t *testing.T) {
		acc, err := NewAccount(scope, "1602", "Accumulated depreciation", AccountTypeAsset, DirectionCredit, nil)
		require.NoError(t, err)
		assert.Equal(t, DirectionCredit, acc.Direction)
		assert.True(t, acc.Net(decimal.NewFromInt(0), decimal.NewFromInt(40)).Equal(decimal.NewFromInt(40)))
	})

	t.Run("child extends parent", func(t *testing.T) {
		parent, _ := NewAccount(scope, "6601", "Selling expenses", AccountTypeExpense, "", nil)
		child, err := NewAccount(scope, "660101", "Advertising", AccountTypeExpense, "", parent)
		require.NoError(t, err)
		assert.Equal(t, 2, child.Level)
		assert.Equal(t, "6601", child.ParentCode)

		_, err = NewAccount(scope, "7001", "Wrong", AccountTypeExpense, "", parent)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := NewAccount(scope, "9", "x", AccountType("income"), "", nil)
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})
}

func TestCurrency(t *testing.T) {
	code, err := NormalizeCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", code)

	_, err = NormalizeCurrency("XXQ")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidCurrency))

	assert.Equal(t, int32(0), CurrencyFraction("JPY"))
	assert.True(t, RoundAmount(decimal.RequireFromString("12.345"), "CNY").Equal(decimal.RequireFromString("12.35")))
}

func TestNewFxRate(t *testing.T) {
	scope := shared.NewScope("", "")
	date := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	rate, err := NewFxRate(scope, "usd", "cny", RateClosing, date, decimal.RequireFromString("7.1"))
	require.NoError(t, err)
	assert.Equal(t, "USD", rate.BaseCurrency)
	assert.Equal(t, "CNY", rate.QuoteCurrency)

	_, err = NewFxRate(scope, "USD", "USD", RateClosing, date, decimal.NewFromInt(1))
	assert.True(t, shared.HasCode(err, shared.CodeInvalidCurrency))

	_, err = NewFxRate(scope, "USD", "CNY", RateClosing, date, decimal.Zero)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidAmount))

	assert.True(t, Invert(decimal.NewFromInt(4)).Equal(decimal.RequireFromString("0.25")))

	policy := DefaultRatePolicy().Merge(RatePolicy{AccountTypeEquity: RateClosing})
	assert.Equal(t, RateClosing, policy.RateFor(AccountTypeEquity))
	assert.Equal(t, RateAverage, policy.RateFor(AccountTypeRevenue))
}

func TestApproval_Gate(t *testing.T) {
	a := NewApproval(shared.NewScope("", ""), ApprovalTargetVoucher, uuid.New())
	assert.True(t, shared.HasCode(a.Gate(), shared.CodeApprovalPending))

	require.NoError(t, a.Decide(false, "bob", "no", time.Now()))
	assert.True(t, shared.HasCode(a.Gate(), shared.CodeApprovalRejected))
	assert.Error(t, a.Decide(true, "bob", "", time.Now()))

	b := NewApproval(shared.NewScope("", ""), ApprovalTargetVoucher, uuid.New())
	require.NoError(t, b.Decide(true, "alice", "", time.Now()))
	assert.NoError(t, b.Gate())
}

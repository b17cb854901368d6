package shared

import (
	"errors"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Ledger error codes. The set is closed: every failure surfaced by the engine
// carries exactly one of these.
const (
	CodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	CodeAccountDisabled        = "ACCOUNT_DISABLED"
	CodeDimensionNotFound      = "DIMENSION_NOT_FOUND"
	CodeInvalidJSON            = "INVALID_JSON"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeInvalidCurrency        = "INVALID_CURRENCY"
	CodeNotBalanced            = "NOT_BALANCED"
	CodeVoucherNotFound        = "VOUCHER_NOT_FOUND"
	CodeVoucherNotReviewed     = "VOUCHER_NOT_REVIEWED"
	CodeVoucherNotDraft        = "VOUCHER_NOT_DRAFT"
	CodePeriodClosed           = "PERIOD_CLOSED"
	CodePeriodHasUnposted      = "PERIOD_HAS_UNPOSTED"
	CodePeriodAdjustmentOnly   = "PERIOD_ADJUSTMENT_ONLY"
	CodePeriodAlreadyClosed    = "PERIOD_ALREADY_CLOSED"
	CodePeriodNotClosed        = "PERIOD_NOT_CLOSED"
	CodeVoidConfirmed          = "VOID_CONFIRMED"
	CodeApprovalPending        = "APPROVAL_PENDING"
	CodeApprovalRejected       = "APPROVAL_REJECTED"
	CodeBudgetExceeded         = "BUDGET_EXCEEDED"
	CodeFxRateNotFound         = "FX_RATE_NOT_FOUND"
	CodeGroupCurrencyRequired  = "GROUP_CURRENCY_REQUIRED"
	CodeInvalidEliminationRule = "INVALID_ELIMINATION_RULE"
	CodeInvalidFormula         = "INVALID_FORMULA"
	CodeInvalidTemplate        = "INVALID_TEMPLATE"
	CodeAuthRequired           = "AUTH_REQUIRED"
	CodeAuthInvalid            = "AUTH_INVALID"
	CodeAuthRevoked            = "AUTH_REVOKED"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput = NewDomainError(CodeInvalidInput, "Invalid input provided")
)

// HasCode reports whether err is a DomainError with the given code
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsNotFoundCode reports whether code names a not-found condition
func IsNotFoundCode(code string) bool {
	return code == CodeNotFound || strings.HasSuffix(code, "_NOT_FOUND")
}

// IsAuthCode reports whether code names an authentication failure
func IsAuthCode(code string) bool {
	return strings.HasPrefix(code, "AUTH_")
}

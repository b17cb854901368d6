package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ledger/internal/domain/shared"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// GetHTTPStatus returns the HTTP status for a ledger error code.
// Authentication failures are 401, missing resources 404, internal
// errors 500 and every other rejection 400.
func GetHTTPStatus(code string) int {
	switch {
	case shared.IsAuthCode(code):
		return http.StatusUnauthorized
	case shared.IsNotFoundCode(code):
		return http.StatusNotFound
	case code == shared.CodeInternal || code == "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// NewErrorResponse creates an error body
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: code, Message: message}
}

// NewErrorResponseWithRequestID creates an error body carrying the request id
func NewErrorResponseWithRequestID(code, message, requestID string) ErrorResponse {
	resp := NewErrorResponse(code, message)
	if requestID != "" {
		resp.Details = map[string]any{"request_id": requestID}
	}
	return resp
}

// NewValidationErrorResponse creates an INVALID_INPUT body listing the rejected fields
func NewValidationErrorResponse(message, requestID string, fields []ValidationDetail) ErrorResponse {
	details := map[string]any{"fields": fields}
	if requestID != "" {
		details["request_id"] = requestID
	}
	return ErrorResponse{Error: shared.CodeInvalidInput, Message: message, Details: details}
}

// FromError converts err into a status and body. Errors that are not
// domain errors are reported as internal without leaking their text.
func FromError(err error, requestID string) (int, ErrorResponse) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(shared.CodeInternal, "internal server error", requestID)
	}

	resp := NewErrorResponse(domainErr.Code, domainErr.Message)
	if len(domainErr.Details) > 0 || requestID != "" {
		resp.Details = make(map[string]any, len(domainErr.Details)+1)
		for k, v := range domainErr.Details {
			resp.Details[k] = v
		}
		if requestID != "" {
			resp.Details["request_id"] = requestID
		}
	}
	return GetHTTPStatus(domainErr.Code), resp
}

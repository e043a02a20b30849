package dto

import (
	"net/http"
	"strings"
)

// Error codes returned in ErrorInfo.Code. Domain errors keep their own code
// with an ERR_ prefix, e.g. ERR_FEE_ALREADY_PAID.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeForbidden           = "ERR_FORBIDDEN"
	ErrCodeTokenExpired        = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid        = "ERR_TOKEN_INVALID"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeGateway             = "ERR_GATEWAY"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
)

// domainErrorStatus maps domain error codes to HTTP status codes.
// Codes missing here fall back to the INVALID_ prefix rule, then 400.
var domainErrorStatus = map[string]int{
	"UNAUTHORIZED": http.StatusUnauthorized,
	"FORBIDDEN":    http.StatusForbidden,

	"NOT_FOUND":                 http.StatusNotFound,
	"FEE_RULE_NOT_FOUND":        http.StatusNotFound,
	"FEE_APPLICATION_NOT_FOUND": http.StatusNotFound,
	"PAYMENT_NOT_FOUND":         http.StatusNotFound,

	"ALREADY_EXISTS":             http.StatusConflict,
	"CONCURRENCY_CONFLICT":       http.StatusConflict,
	"DUPLICATE_OPEN_APPLICATION": http.StatusConflict,

	"INVALID_STATE":          http.StatusBadRequest,
	"FEE_RULE_NOT_ACTIVE":    http.StatusBadRequest,
	"FEE_RULE_NOT_EFFECTIVE": http.StatusBadRequest,
	"FEE_RULE_DELETED":       http.StatusBadRequest,
	"FEE_ALREADY_PAID":       http.StatusBadRequest,
	"NOTHING_DUE":            http.StatusBadRequest,
	"PAYMENT_IN_PROGRESS":    http.StatusBadRequest,
	"AMOUNT_MISMATCH":        http.StatusBadRequest,

	"EFFECTIVE_DATE_NOT_FUTURE": http.StatusUnprocessableEntity,

	"GATEWAY_ERROR": http.StatusInternalServerError,
}

// DomainErrorStatus returns the HTTP status for a domain error code.
// INVALID_* codes are input validation failures.
func DomainErrorStatus(code string) int {
	if status, ok := domainErrorStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// NormalizeErrorCode converts a domain error code to the API format
func NormalizeErrorCode(code string) string {
	switch {
	case code == "":
		return ErrCodeInternal
	case code == "GATEWAY_ERROR":
		return ErrCodeGateway
	case strings.HasPrefix(code, "ERR_"):
		return code
	}
	return "ERR_" + code
}

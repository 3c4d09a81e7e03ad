package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes (EMPTY_CART, LOCKER_ID_REQUIRED, ...).
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidJSON  = "INVALID_JSON"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Codes missing here fall back to suffix rules in GetHTTPStatus.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeRateLimited:  http.StatusTooManyRequests,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,

	// auth
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_REVOKED":       http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,
	"USER_INACTIVE":       http.StatusForbidden,
	"WEAK_PASSWORD":       http.StatusBadRequest,
	"INVALID_SIGNATURE":   http.StatusBadRequest,

	// conflicts
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// business rules
	"EMPTY_CART":                http.StatusBadRequest,
	"INSUFFICIENT_STOCK":        http.StatusUnprocessableEntity,
	"PRODUCT_UNAVAILABLE":       http.StatusUnprocessableEntity,
	"INVALID_STATUS_TRANSITION": http.StatusUnprocessableEntity,
	"AWAITING_PAYMENT":          http.StatusConflict,
	"INVALID_STATE":             http.StatusUnprocessableEntity,
	"REASON_REQUIRED":           http.StatusBadRequest,
	"LOCKER_ID_REQUIRED":        http.StatusBadRequest,
	"NON_EU_VAT_PREFIX":         http.StatusBadRequest,
	"NO_SHIPMENT":               http.StatusConflict,
	"UNKNOWN_CARRIER":           http.StatusBadRequest,
	"UNSUPPORTED_MEDIA_TYPE":    http.StatusUnsupportedMediaType,
	"UNSUPPORTED_CURRENCY":      http.StatusBadRequest,

	// upstreams
	"PAYMENT_SESSION_FAILED":      http.StatusBadGateway,
	"PAYMENT_UNAVAILABLE":         http.StatusServiceUnavailable,
	"CARRIER_DISABLED":            http.StatusServiceUnavailable,
	"CARRIER_NOT_CONFIGURED":      http.StatusServiceUnavailable,
	"CARRIER_REJECTED":            http.StatusBadGateway,
	"CARRIER_UNAVAILABLE":         http.StatusBadGateway,
	"LABEL_UNAVAILABLE":           http.StatusBadGateway,
	"VIES_UNAVAILABLE":            http.StatusServiceUnavailable,
	"UPSTREAM_UNAVAILABLE":        http.StatusServiceUnavailable,
	"NOTIFICATION_NOT_CONFIGURED": http.StatusServiceUnavailable,
	"NOTIFICATION_FAILED":         http.StatusBadGateway,
	"PDF_DISABLED":                http.StatusServiceUnavailable,
	"PDF_RENDER_TIMEOUT":          http.StatusGatewayTimeout,
	"PDF_RENDER_FAILED":           http.StatusBadGateway,
	"INVOICE_NOT_AVAILABLE":       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code.
// *_NOT_FOUND is 404 and INVALID_* is 400; anything else unknown is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasSuffix(code, "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"), strings.HasSuffix(code, "_REQUIRED"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsUpstreamStatus reports whether the status means a third party failed
func IsUpstreamStatus(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable
}

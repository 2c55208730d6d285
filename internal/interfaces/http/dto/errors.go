package dto

import (
	"net/http"
	"strings"
)

// Error codes used by the HTTP layer itself. Domain error codes pass
// through unchanged; this file only decides their status codes.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidID    = "INVALID_ID"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	// Auth
	"UNAUTHORIZED":        http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED": http.StatusUnauthorized,
	"ACCOUNT_INACTIVE":    http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,
	"FORBIDDEN":           http.StatusForbidden,

	// Resources
	"NOT_FOUND":         http.StatusNotFound,
	"ACCOUNT_NOT_FOUND": http.StatusNotFound,
	"USER_NOT_FOUND":    http.StatusNotFound,
	"ALREADY_EXISTS":    http.StatusConflict,

	// Concurrency and staging. A stale staging reference is a conflict
	// between what the caller holds and what the server still knows.
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"STALE_ARTIFACT":       http.StatusConflict,
	"INVALID_TRANSITION":   http.StatusConflict,

	// Business rules -> 422
	"INSUFFICIENT_BALANCE": http.StatusUnprocessableEntity,
	"CURRENCY_MISMATCH":    http.StatusUnprocessableEntity,
	"ANALYSIS_FAILED":      http.StatusUnprocessableEntity,
	"AI_DISABLED":          http.StatusUnprocessableEntity,
	"SELF_ROLE_CHANGE":     http.StatusUnprocessableEntity,
	"SELF_DEACTIVATION":    http.StatusUnprocessableEntity,
	"ALREADY_ACTIVE":       http.StatusUnprocessableEntity,
	"ALREADY_DEACTIVATED":  http.StatusUnprocessableEntity,

	// Input
	"BAD_REQUEST":   http.StatusBadRequest,
	"INVALID_ID":    http.StatusBadRequest,
	"INVALID_INPUT": http.StatusBadRequest,

	// Internal
	"INTERNAL_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code. Domain
// validation codes (INVALID_*) default to 422; anything unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

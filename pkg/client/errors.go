// Package client is a typed Go client for the back office API. The
// Gateway wraps every endpoint family; the Controller layers payment
// order lifecycle rules on top with local fast-fail checks.
package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an API failure. Each kind calls for a different
// caller reaction; only Transport is safe to retry blindly.
type ErrorKind string

const (
	// KindTransport is a network or timeout failure. Safe to retry
	// with backoff.
	KindTransport ErrorKind = "transport"
	// KindUnauthenticated means the session is missing or expired (401).
	// The caller must re-login, not retry.
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindUnauthorized means the authenticated user lacks permission
	// (403). Never retried.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindValidation is a field-level rejection (400/422). Surfaced
	// verbatim, never retried.
	KindValidation ErrorKind = "validation"
	// KindNotFound means the entity vanished or the id is wrong (404).
	KindNotFound ErrorKind = "not_found"
	// KindStaleArtifact means the staged receipt reference expired; the
	// caller must restart the verify phase.
	KindStaleArtifact ErrorKind = "stale_artifact"
	// KindConflict is a backend-detected concurrent modification. The
	// caller must re-fetch and may retry once with fresh state.
	KindConflict ErrorKind = "conflict"
)

// APIError is the failure type for every Gateway call
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	cause      error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying transport error, if any
func (e *APIError) Unwrap() error {
	return e.cause
}

// Retryable reports whether blind retry with backoff is appropriate
func (e *APIError) Retryable() bool {
	return e.Kind == KindTransport
}

// AsAPIError extracts an *APIError from an error chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func transportError(err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: err.Error(),
		cause:   err,
	}
}

func validationError(message string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Message: message,
	}
}

// classify maps an HTTP status and server error code to an ErrorKind
func classify(statusCode int, code string) ErrorKind {
	switch statusCode {
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		if code == "STALE_ARTIFACT" {
			return KindStaleArtifact
		}
		return KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return KindValidation
	}
	if statusCode >= 500 {
		return KindTransport
	}
	return KindValidation
}

// InvalidTransitionError is a local precondition failure: the requested
// lifecycle operation is not legal from the order's current status. It
// is raised before any network call.
type InvalidTransitionError struct {
	Current   string
	Requested string
	Required  string
}

// Error implements the error interface
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %q (requires %s)", e.Requested, e.Current, e.Required)
}

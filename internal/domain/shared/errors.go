package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
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

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInsufficientBalance = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrStaleArtifact       = NewDomainError("STALE_ARTIFACT", "Staged receipt reference expired or unknown; restart verification")
)

// InvalidTransitionError reports a state transition attempted from a state
// where it is not legal. It identifies the current state, the requested
// transition, and the state the transition requires.
type InvalidTransitionError struct {
	Current    string
	Requested  string
	RequiredIn []string
}

// Error implements the error interface
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status %q (requires one of %v)", e.Requested, e.Current, e.RequiredIn)
}

// DomainError converts the transition failure to a coded domain error
func (e *InvalidTransitionError) DomainError() *DomainError {
	return NewDomainError("INVALID_TRANSITION", e.Error())
}

// NewInvalidTransitionError creates a new InvalidTransitionError
func NewInvalidTransitionError(current, requested string, requiredIn ...string) *InvalidTransitionError {
	return &InvalidTransitionError{
		Current:    current,
		Requested:  requested,
		RequiredIn: requiredIn,
	}
}

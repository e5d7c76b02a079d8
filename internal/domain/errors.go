package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDomainAlreadyClaimed = errors.New("domain already claimed")
	ErrVerificationPending  = errors.New("verification pending")
	ErrVerificationFailed   = errors.New("verification failed")
	ErrTransientDependency  = errors.New("dependency temporarily unavailable")
	ErrTransientUnavailable = errors.New("temporarily unavailable")
	ErrAllocationExhausted  = errors.New("short code allocation exhausted")
)

// QuotaExceededError is returned when a plan limit denies link creation.
type QuotaExceededError struct {
	Current int64
	Limit   int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d of %d links used", e.Current, e.Limit)
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

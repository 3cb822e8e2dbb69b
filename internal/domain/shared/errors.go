// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrStaleTimestamp  = errors.New("timestamp is older than recorded state")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyGranted   = errors.New("reward already granted")
	ErrAlreadyProcessed = errors.New("already processed")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "catalog", "leaderboard"
	Op      string // Operation that failed, e.g., "RecordEvent", "AwardBadge"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progression domain errors
var (
	ErrProgressionNotFound      = NewDomainError("progression", "Get", ErrNotFound, "progression record not found")
	ErrProgressionAlreadyExists = NewDomainError("progression", "Create", ErrAlreadyExists, "progression record already exists")
	ErrInvalidUserID            = NewDomainError("progression", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidPointAmount       = NewDomainError("progression", "AddPoints", ErrValidation, "point amount must be a positive integer")
	ErrUnknownEventType         = NewDomainError("progression", "RecordEvent", ErrValidation, "unknown event type")
	ErrStreakClockSkew          = NewDomainError("progression", "UpdateStreak", ErrStaleTimestamp, "activity timestamp predates last active date")
)

// Catalog domain errors
var (
	ErrBadgeNotFound        = NewDomainError("catalog", "Badge", ErrNotFound, "badge not found in catalog")
	ErrAchievementNotFound  = NewDomainError("catalog", "Achievement", ErrNotFound, "achievement not found in catalog")
	ErrInvalidTier          = NewDomainError("catalog", "Validate", ErrInvalidInput, "invalid badge tier")
	ErrNonAscendingTiers    = NewDomainError("catalog", "Validate", ErrInvalidEntity, "tier requirements must strictly increase")
	ErrEmptyLevelThresholds = NewDomainError("catalog", "Validate", ErrInvalidEntity, "level threshold table cannot be empty")
)

// Leaderboard domain errors
var (
	ErrInvalidRankingKey = NewDomainError("leaderboard", "Validate", ErrInvalidInput, "invalid ranking key")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrStaleTimestamp)
}

// IsConflict checks if the error is a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}

// IsStoreUnavailable checks if the error is a persistence failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return IsConflict(err)
}

package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the resource state does not allow the operation.
	ErrConflict = errors.New("conflict")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConsistency is matched by every ConsistencyError.
	ErrConsistency = errors.New("consistency check failed")
	// ErrStore is matched by every StoreError.
	ErrStore = errors.New("store failure")
)

// ValidationError reports caller supplied data that violates a precondition.
// It is always returned before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

// Validation builds a ValidationError.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConsistencyError reports a computed invariant that would be violated.
type ConsistencyError struct {
	Op      string
	Message string
}

// Consistency builds a ConsistencyError.
func Consistency(op, format string, args ...any) *ConsistencyError {
	return &ConsistencyError{Op: op, Message: fmt.Sprintf(format, args...)}
}

func (e *ConsistencyError) Error() string {
	return e.Op + ": " + e.Message
}

// Is matches ErrConsistency.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

// StoreError wraps a failure reported by the relational store.
type StoreError struct {
	Op  string
	Err error
}

// Store wraps err as a StoreError. Nil stays nil and errors that already carry
// a kind from this taxonomy are returned untouched.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsKind(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsKind reports whether err already belongs to the ledger error taxonomy.
func IsKind(err error) bool {
	return errors.Is(err, ErrStore) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConsistency) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

package services

import "fmt"

// Service errors form the taxonomy the routes translate into HTTP statuses.
// Conversation-uniqueness conflicts are absorbed inside the resolver and
// intentionally have no type here.

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ReferentialError reports a reference to a row that does not exist
// (rfq, customer, vendor).
type ReferentialError struct {
	Reason string
}

func (e *ReferentialError) Error() string { return e.Reason }

// NotFoundError reports an unknown conversation or message id.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// StorageError wraps an underlying persistence failure. No operation
// partially applies, so callers may safely retry.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage failure: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document lookup matches nothing.
	ErrNotFound = errors.New("document not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")
)

// ErrDuplicateID indicates an insert carrying an id that is already
// stored in the collection.
type ErrDuplicateID struct {
	Collection string
	ID         string
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("document %q already exists in collection %q", e.ID, e.Collection)
}

// ErrTxNotFound indicates an unknown transaction id.
type ErrTxNotFound struct {
	ID string
}

func (e *ErrTxNotFound) Error() string {
	return fmt.Sprintf("transaction %q not found", e.ID)
}

// ErrTxNotPending indicates an operation on a transaction that already
// reached a terminal state.
type ErrTxNotPending struct {
	ID    string
	State TxState
}

func (e *ErrTxNotPending) Error() string {
	return fmt.Sprintf("transaction %q is %s, not pending", e.ID, e.State)
}

// ErrDomainValidation indicates an update rejected by a registered
// update validator.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDomainValidation struct {
	Collection string
	Reason     string
	cause      error
}

func (e *ErrDomainValidation) Error() string {
	return fmt.Sprintf("validation failed for collection %q: %s", e.Collection, e.Reason)
}

func (e *ErrDomainValidation) Unwrap() error { return e.cause }

// NewErrDomainValidation builds a domain validation failure.
func NewErrDomainValidation(collection, reason string, cause error) *ErrDomainValidation {
	return &ErrDomainValidation{Collection: collection, Reason: reason, cause: cause}
}

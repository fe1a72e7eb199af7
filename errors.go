package docgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/docgo/engine"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/persistence"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when operating on a closed database.
	ErrClosed = errors.New("database is closed")
)

// ErrUniqueConstraint indicates a rejected write under a unique index.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrUniqueConstraint struct {
	Field string
	cause error
}

func (e *ErrUniqueConstraint) Error() string {
	return fmt.Sprintf("unique constraint violation on field %q", e.Field)
}

func (e *ErrUniqueConstraint) Unwrap() error { return e.cause }

// translateError unifies lower-layer errors behind the package's
// sentinels and types so callers only match against docgo errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, engine.ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, engine.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	var uc *index.ErrUniqueConstraint
	if errors.As(err, &uc) {
		return &ErrUniqueConstraint{Field: uc.Field, cause: err}
	}

	return err
}

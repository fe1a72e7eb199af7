// Package persistence defines how collections reach their backing
// storage: one JSON object per collection, keyed by document id.
//
// The collection store consumes the Backend interface and treats the
// concrete implementation (local files, memory, S3, MinIO, sqlite) as
// an external collaborator.
package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/hupe1980/docgo/document"
)

// Collection is the persisted form of a collection: its documents keyed
// by id. Documents include their own id field.
type Collection = map[string]document.Document

// ErrNotFound is returned when a collection has no backing data.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
// Callers materialize an empty collection in this case.
var ErrNotFound = os.ErrNotExist

// Backend reads and writes whole collections keyed by name.
//
// Save must be atomic: a reader never observes a partially written
// collection, only the previous or the new content.
type Backend interface {
	// Load returns the documents of a collection keyed by id.
	// A collection with no backing data returns ErrNotFound.
	Load(ctx context.Context, collection string) (Collection, error)
	// Save writes the full document mapping of a collection.
	Save(ctx context.Context, collection string, docs Collection) error
	// Delete removes a collection's backing data. Deleting a collection
	// that does not exist is not an error.
	Delete(ctx context.Context, collection string) error
	// List returns the names of all persisted collections.
	List(ctx context.Context) ([]string, error)
	// Close releases resources held by the backend.
	Close() error
}

// ErrLoad wraps a read or parse failure for a collection.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrLoad struct {
	Collection string
	cause      error
}

func (e *ErrLoad) Error() string {
	return fmt.Sprintf("load collection %q: %v", e.Collection, e.cause)
}

func (e *ErrLoad) Unwrap() error { return e.cause }

// NewErrLoad wraps cause as a load failure for the given collection.
func NewErrLoad(collection string, cause error) *ErrLoad {
	return &ErrLoad{Collection: collection, cause: cause}
}

// ErrSave wraps a write failure for a collection.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrSave struct {
	Collection string
	cause      error
}

func (e *ErrSave) Error() string {
	return fmt.Sprintf("save collection %q: %v", e.Collection, e.cause)
}

func (e *ErrSave) Unwrap() error { return e.cause }

// NewErrSave wraps cause as a save failure for the given collection.
func NewErrSave(collection string, cause error) *ErrSave {
	return &ErrSave{Collection: collection, cause: cause}
}

// ErrDirectoryCreate indicates the data directory could not be created.
type ErrDirectoryCreate struct {
	Dir   string
	cause error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("create data directory %q: %v", e.Dir, e.cause)
}

func (e *ErrDirectoryCreate) Unwrap() error { return e.cause }

// NewErrDirectoryCreate wraps cause as a directory creation failure.
func NewErrDirectoryCreate(dir string, cause error) *ErrDirectoryCreate {
	return &ErrDirectoryCreate{Dir: dir, cause: cause}
}

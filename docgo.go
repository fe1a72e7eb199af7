package docgo

import (
	"context"

	"github.com/hupe1980/docgo/codec"
	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/engine"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/persistence"
	"github.com/hupe1980/docgo/query"
)

// DB is an embedded document database: schema-less collections stored
// one JSON file each, queried with a MongoDB-style operator language.
type DB struct {
	store     *engine.Store
	coord     *engine.Coordinator
	autosaver *engine.Autosaver
	logger    *Logger
}

// Open creates a database backed by local files under dir, one
// `<collection>.json` per collection.
func Open(dir string, optFns ...Option) (*DB, error) {
	opts := newOptions(optFns)

	backend := opts.backend
	if backend == nil {
		local, err := persistence.NewLocal(dir, func(lo *persistence.LocalOptions) {
			lo.Codec = opts.codec
			lo.Compression = opts.compression
			lo.PrettyPrint = opts.prettyPrint
		})
		if err != nil {
			return nil, err
		}
		backend = local
	}
	return open(backend, opts), nil
}

// OpenWith creates a database on an explicit persistence backend, such
// as persistence/s3, persistence/minio or persistence/sqlite.
func OpenWith(backend persistence.Backend, optFns ...Option) *DB {
	return open(backend, newOptions(optFns))
}

func newOptions(optFns []Option) *options {
	opts := &options{
		codec:      codec.Default,
		logger:     NoopLogger(),
		schemas:    make(map[string]document.Schema),
		validators: make(map[string]engine.UpdateValidator),
	}
	for _, fn := range optFns {
		fn(opts)
	}
	return opts
}

func open(backend persistence.Backend, opts *options) *DB {
	store := engine.NewStore(backend, func(so *engine.StoreOptions) {
		so.Logger = opts.logger.Logger
		so.Schemas = opts.schemas
		so.UpdateValidators = opts.validators
	})

	db := &DB{
		store:  store,
		coord:  engine.NewCoordinator(store),
		logger: opts.logger,
	}
	if opts.autosave {
		db.autosaver = engine.NewAutosaver(store, opts.autosaveInterval)
		db.autosaver.Start()
	}
	return db
}

// Insert stores a new document and returns the stored copy. Documents
// without an "id" field get a generated uuid.
func (db *DB) Insert(ctx context.Context, collection string, doc map[string]any) (document.Document, error) {
	d, err := document.FromMap(doc)
	if err != nil {
		return nil, err
	}

	stored, err := db.store.Insert(ctx, collection, d)
	if err != nil {
		return nil, translateError(err)
	}

	id, _ := stored.ID()
	db.logger.LogInsert(ctx, collection, id, nil)
	return stored, nil
}

// Find returns all documents matching the query, shaped by opts
// (sort, then skip, then limit). A nil or empty query matches every
// document; opts may be nil.
func (db *DB) Find(ctx context.Context, collection string, q map[string]any, opts *query.FindOptions) ([]document.Document, error) {
	qd, err := document.FromMap(q)
	if err != nil {
		return nil, err
	}

	docs, err := db.store.Find(ctx, collection, qd, opts)
	if err != nil {
		return nil, translateError(err)
	}

	db.logger.LogFind(ctx, collection, len(docs), nil)
	return docs, nil
}

// FindOne returns the first document matching the query, or
// ErrNotFound.
func (db *DB) FindOne(ctx context.Context, collection string, q map[string]any) (document.Document, error) {
	docs, err := db.Find(ctx, collection, q, &query.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// FindByID returns the document with the given id, or ErrNotFound.
func (db *DB) FindByID(ctx context.Context, collection, id string) (document.Document, error) {
	doc, err := db.store.FindByID(ctx, collection, id)
	if err != nil {
		return nil, translateError(err)
	}
	return doc, nil
}

// Count returns the number of documents matching the query.
func (db *DB) Count(ctx context.Context, collection string, q map[string]any) (int, error) {
	qd, err := document.FromMap(q)
	if err != nil {
		return 0, err
	}

	n, err := db.store.Count(ctx, collection, qd)
	if err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// Update merges the patch fields over every document whose fields equal
// the query exactly and returns the number of updated documents. The
// query is equality-only here; operators are not interpreted.
func (db *DB) Update(ctx context.Context, collection string, q, patch map[string]any) (int, error) {
	qd, err := document.FromMap(q)
	if err != nil {
		return 0, err
	}
	pd, err := document.FromMap(patch)
	if err != nil {
		return 0, err
	}

	count, err := db.store.Update(ctx, collection, qd, pd)
	if err != nil {
		return count, translateError(err)
	}
	return count, nil
}

// Delete removes every document whose fields equal the query exactly
// and returns the number removed.
func (db *DB) Delete(ctx context.Context, collection string, q map[string]any) (int, error) {
	qd, err := document.FromMap(q)
	if err != nil {
		return 0, err
	}

	count, err := db.store.Delete(ctx, collection, qd)
	if err != nil {
		return count, translateError(err)
	}
	return count, nil
}

// Drop removes a collection and its backing file. Dropping an absent
// collection is not an error.
func (db *DB) Drop(ctx context.Context, collection string) error {
	return translateError(db.store.Drop(ctx, collection))
}

// CreateIndex builds a secondary index on (collection, field).
func (db *DB) CreateIndex(ctx context.Context, collection, field string, cfg index.Config) error {
	return translateError(db.store.CreateIndex(ctx, collection, field, cfg))
}

// DropIndex removes the index on (collection, field).
func (db *DB) DropIndex(collection, field string) {
	db.store.DropIndex(collection, field)
}

// SaveAll persists every dirty collection.
func (db *DB) SaveAll(ctx context.Context) error {
	err := db.store.SaveAll(ctx)
	db.logger.LogSave(ctx, "*", err)
	return translateError(err)
}

// Collections returns the names of all known collections, resident or
// persisted.
func (db *DB) Collections(ctx context.Context) ([]string, error) {
	names, err := db.store.Collections(ctx)
	return names, translateError(err)
}

// Begin starts a transaction snapshotting every resident collection.
func (db *DB) Begin(ctx context.Context) *engine.Tx {
	return db.coord.Begin(ctx)
}

// Tx returns a previously started transaction by id.
func (db *DB) Tx(id string) (*engine.Tx, error) {
	tx, err := db.coord.Get(id)
	return tx, translateError(err)
}

// Subscribe registers an observer for store events.
func (db *DB) Subscribe(o engine.Observer) {
	db.store.Notifier().Subscribe(o)
}

// Close stops the autosaver, flushes dirty collections and closes the
// backend.
func (db *DB) Close(ctx context.Context) error {
	if db.autosaver != nil {
		if err := db.autosaver.Stop(ctx); err != nil {
			return translateError(err)
		}
	}
	return translateError(db.store.Close(ctx))
}

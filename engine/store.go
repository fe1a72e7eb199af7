package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/index"
	"github.com/hupe1980/docgo/persistence"
	"github.com/hupe1980/docgo/query"
)

// UpdateValidator inspects an update before it is applied. oldDoc is
// the current document, newDoc the document after the patch. Returning
// an error rejects the update for this document and aborts the
// remaining matches.
type UpdateValidator func(oldDoc, newDoc document.Document) error

// StoreOptions configure a Store.
type StoreOptions struct {
	// Logger receives structured operation logs. Defaults to a silent
	// logger.
	Logger *slog.Logger
	// Schemas validate documents per collection on insert and update.
	Schemas map[string]document.Schema
	// UpdateValidators run per collection before an update is applied.
	UpdateValidators map[string]UpdateValidator
}

// Store keeps collections resident in memory and mutates them under a
// single mutex. Collections load lazily on first touch and persist on
// explicit or automatic saves.
type Store struct {
	mu          sync.Mutex
	backend     persistence.Backend
	indexes     *index.Manager
	notifier    *Notifier
	logger      *slog.Logger
	schemas     map[string]document.Schema
	validators  map[string]UpdateValidator
	loads       singleflight.Group
	collections map[string]*collection
	closed      bool
}

// NewStore creates a store on the given backend.
func NewStore(backend persistence.Backend, optFns ...func(*StoreOptions)) *Store {
	opts := StoreOptions{
		Logger:           slog.New(slog.DiscardHandler),
		Schemas:          make(map[string]document.Schema),
		UpdateValidators: make(map[string]UpdateValidator),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		backend:     backend,
		indexes:     index.NewManager(),
		notifier:    NewNotifier(),
		logger:      opts.Logger,
		schemas:     opts.Schemas,
		validators:  opts.UpdateValidators,
		collections: make(map[string]*collection),
	}
}

// Notifier returns the store's event notifier.
func (s *Store) Notifier() *Notifier { return s.notifier }

// ensure materializes a collection into memory. Loading the same
// collection concurrently is deduplicated; a collection with no backing
// data starts empty. Backend I/O happens outside the store mutex.
func (s *Store) ensure(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, ok := s.collections[name]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	v, err, _ := s.loads.Do(name, func() (any, error) {
		docs, err := s.backend.Load(ctx, name)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return newCollection(name), nil
			}
			return nil, err
		}
		return fromPersisted(name, docs), nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = v.(*collection)
	}
	return nil
}

// resident returns the loaded collection, materializing an empty one
// when a concurrent Drop removed it between ensure and the caller's
// critical section. Callers must hold s.mu.
func (s *Store) resident(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = newCollection(name)
		s.collections[name] = c
	}
	return c
}

// Insert stores a new document and returns the stored copy. A document
// without an id field gets a generated uuid. Index constraints are
// checked before any state changes; a rejected insert leaves the store
// untouched.
func (s *Store) Insert(ctx context.Context, name string, doc document.Document) (document.Document, error) {
	if err := s.ensure(ctx, name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	c := s.resident(name)

	stored := doc.Clone()
	id, ok := stored.ID()
	if !ok || id == "" {
		id = uuid.NewString()
		stored["id"] = document.String(id)
	}
	if _, exists := c.get(id); exists {
		return nil, &ErrDuplicateID{Collection: name, ID: id}
	}

	if schema, ok := s.schemas[name]; ok {
		if err := schema.Validate(stored); err != nil {
			return nil, err
		}
	}
	if err := s.indexes.OnInsert(name, stored); err != nil {
		return nil, err
	}

	c.put(id, stored)
	c.dirty = true

	s.logger.DebugContext(ctx, "document inserted", "collection", name, "id", id)

	return stored.Clone(), nil
}

// Find returns clones of all documents matching the query, shaped by
// the options (sort, then skip, then limit).
//
// A single-field equality condition on an indexed field narrows the
// scan to the index posting; candidates are still verified against the
// full query.
func (s *Store) Find(ctx context.Context, name string, q document.Document, opts *query.FindOptions) ([]document.Document, error) {
	if err := s.ensure(ctx, name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	c := s.resident(name)

	results := make([]document.Document, 0)
	for _, doc := range s.candidates(c, q) {
		if query.Matches(doc, q) {
			results = append(results, doc.Clone())
		}
	}
	return opts.Apply(results), nil
}

// candidates selects the documents worth matching: the posting of the
// first indexed equality condition in the query, or the full collection
// in insertion order.
func (s *Store) candidates(c *collection, q document.Document) []document.Document {
	for field, cond := range q {
		if strings.HasPrefix(field, "$") || !query.IsEqualityCondition(cond) {
			continue
		}
		ids, ok := s.indexes.Lookup(c.name, field, cond)
		if !ok {
			continue
		}
		keep := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			keep[id] = struct{}{}
		}
		// Preserve insertion order for deterministic results.
		out := make([]document.Document, 0, len(ids))
		for _, id := range c.order {
			if _, ok := keep[id]; !ok {
				continue
			}
			if doc, ok := c.get(id); ok {
				out = append(out, doc)
			}
		}
		return out
	}
	return c.list()
}

// FindByID returns a clone of the document with the given id, or
// ErrNotFound.
func (s *Store) FindByID(ctx context.Context, name, id string) (document.Document, error) {
	if err := s.ensure(ctx, name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.resident(name).get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// Count returns the number of documents matching the query.
func (s *Store) Count(ctx context.Context, name string, q document.Document) (int, error) {
	if err := s.ensure(ctx, name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	c := s.resident(name)

	n := 0
	for _, doc := range s.candidates(c, q) {
		if query.Matches(doc, q) {
			n++
		}
	}
	return n, nil
}

// Update merges the patch fields over every document matching the
// query and returns the number of updated documents.
//
// The query is matched by exact field equality only; operators are not
// interpreted here. The id field cannot be patched. A validator or
// index rejection aborts the remaining matches; already applied updates
// stay in place.
func (s *Store) Update(ctx context.Context, name string, q document.Document, patch document.Document) (int, error) {
	if err := s.ensure(ctx, name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	c := s.resident(name)

	count := 0
	for _, id := range append([]string(nil), c.order...) {
		doc, ok := c.get(id)
		if !ok || !query.MatchesEquality(doc, q) {
			continue
		}

		updated := doc.Clone()
		for field, value := range patch {
			if field == "id" {
				continue
			}
			updated[field] = value.Clone()
		}

		if validate, ok := s.validators[name]; ok {
			if err := validate(doc, updated); err != nil {
				return count, err
			}
		}
		if schema, ok := s.schemas[name]; ok {
			if err := schema.Validate(updated); err != nil {
				return count, err
			}
		}
		if err := s.indexes.OnUpdate(name, doc, updated); err != nil {
			return count, err
		}

		c.put(id, updated)
		c.dirty = true
		count++

		s.notifier.notifyUpdate(name, updated.Clone())
	}

	if count > 0 {
		s.logger.DebugContext(ctx, "documents updated", "collection", name, "count", count)
	}
	return count, nil
}

// Delete removes every document matching the query and returns the
// number removed. The query is matched by exact field equality only.
func (s *Store) Delete(ctx context.Context, name string, q document.Document) (int, error) {
	if err := s.ensure(ctx, name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	c := s.resident(name)

	count := 0
	for _, id := range append([]string(nil), c.order...) {
		doc, ok := c.get(id)
		if !ok || !query.MatchesEquality(doc, q) {
			continue
		}

		s.indexes.OnDelete(name, doc)
		c.remove(id)
		c.dirty = true
		count++

		s.notifier.notifyDelete(name, id)
	}

	if count > 0 {
		s.logger.DebugContext(ctx, "documents deleted", "collection", name, "count", count)
	}
	return count, nil
}

// Drop removes a collection from memory, its indexes and its backing
// data. Dropping a collection that does not exist is not an error.
func (s *Store) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.collections, name)
	s.indexes.DropCollection(name)
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, name); err != nil {
		return err
	}

	s.notifier.notifyDrop(name)
	s.logger.DebugContext(ctx, "collection dropped", "collection", name)
	return nil
}

// CreateIndex builds a secondary index on (collection, field) over the
// current documents in insertion order. A uniqueness violation leaves
// no index behind.
func (s *Store) CreateIndex(ctx context.Context, name, field string, cfg index.Config) error {
	if err := s.ensure(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.indexes.Create(name, field, cfg, s.resident(name).list())
}

// DropIndex removes the index on (collection, field).
func (s *Store) DropIndex(name, field string) {
	s.indexes.Drop(name, field)
}

// SaveAll persists every dirty collection concurrently and clears
// their dirtiness. Saves run outside the store mutex against a stable
// snapshot of each collection's document mapping.
func (s *Store) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	pending := make(map[string]map[string]document.Document)
	for name, c := range s.collections {
		if c.dirty {
			pending[name] = c.persisted()
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, docs := range pending {
		g.Go(func() error {
			return s.backend.Save(gctx, name, docs)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	for name := range pending {
		if c, ok := s.collections[name]; ok {
			c.dirty = false
		}
	}
	s.mu.Unlock()

	for name := range pending {
		s.notifier.notifySave(name)
		s.logger.DebugContext(ctx, "collection saved", "collection", name)
	}
	return nil
}

// Save persists a single collection regardless of dirtiness.
func (s *Store) Save(ctx context.Context, name string) error {
	if err := s.ensure(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	docs := s.resident(name).persisted()
	s.mu.Unlock()

	if err := s.backend.Save(ctx, name, docs); err != nil {
		return err
	}

	s.mu.Lock()
	if c, ok := s.collections[name]; ok {
		c.dirty = false
	}
	s.mu.Unlock()

	s.notifier.notifySave(name)
	return nil
}

// Collections returns the union of resident and persisted collection
// names, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	persisted, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	seen := make(map[string]struct{}, len(persisted)+len(s.collections))
	for _, name := range persisted {
		seen[name] = struct{}{}
	}
	for name := range s.collections {
		seen[name] = struct{}{}
	}
	s.mu.Unlock()

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close flushes dirty collections, closes the backend and marks the
// store unusable. Closing twice is a no-op.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.SaveAll(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.notifier.notifyClose()
	return s.backend.Close()
}

// snapshotResident deep-copies every resident collection. Used by the
// transaction coordinator to capture a rollback point.
func (s *Store) snapshotResident() map[string]*collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*collection, len(s.collections))
	for name, c := range s.collections {
		out[name] = c.clone()
	}
	return out
}

// restore replaces the resident collections present in the snapshot,
// rebuilds their indexes and marks them dirty. Collections not in the
// snapshot are left untouched.
func (s *Store) restore(snapshots map[string]*collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, snap := range snapshots {
		restored := snap.clone()
		restored.dirty = true
		s.collections[name] = restored

		if err := s.indexes.Rebuild(name, restored.list()); err != nil {
			return err
		}
	}
	return nil
}

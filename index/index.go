// Package index maintains secondary indexes over collections.
//
// An index on (collection, field) maps each field value to the set of
// document ids currently holding that value. Id sets are Roaring
// Bitmaps over compact local ids; a per-collection table translates
// between document ids and local ids.
//
// Indexes accelerate equality lookups and enforce the unique/sparse
// policy. All checks for a single mutation are atomic: either every
// posting update succeeds or none take effect.
package index

import (
	"fmt"
	"sync"

	"github.com/hupe1980/docgo/document"
)

// Config holds the policy of a single index.
type Config struct {
	// Unique rejects a second document carrying an already-indexed value.
	Unique bool
	// Sparse skips documents that do not carry the indexed field.
	Sparse bool
}

// ErrUniqueConstraint is returned when an insert, update or index build
// would leave two documents sharing a value under a unique index.
type ErrUniqueConstraint struct {
	Field string
}

func (e *ErrUniqueConstraint) Error() string {
	return fmt.Sprintf("unique constraint violation on field %q", e.Field)
}

// fieldIndex holds the postings of one indexed field.
type fieldIndex struct {
	cfg Config
	// value key -> local ids holding that value. Documents missing the
	// field post under the key "undefined" unless the index is sparse.
	postings map[string]*Bitmap
}

func newFieldIndex(cfg Config) *fieldIndex {
	return &fieldIndex{cfg: cfg, postings: make(map[string]*Bitmap)}
}

func (fi *fieldIndex) add(key string, local uint32) {
	ids, ok := fi.postings[key]
	if !ok {
		ids = NewBitmap()
		fi.postings[key] = ids
	}
	ids.Add(local)
}

func (fi *fieldIndex) remove(key string, local uint32) {
	ids, ok := fi.postings[key]
	if !ok {
		return
	}
	ids.Remove(local)
	if ids.IsEmpty() {
		delete(fi.postings, key)
	}
}

func (fi *fieldIndex) taken(key string) bool {
	ids, ok := fi.postings[key]
	return ok && !ids.IsEmpty()
}

// collectionIndexes holds all indexes of one collection plus the local
// id table shared by them.
type collectionIndexes struct {
	locals map[string]uint32
	docIDs map[uint32]string
	next   uint32
	fields map[string]*fieldIndex
}

func newCollectionIndexes() *collectionIndexes {
	return &collectionIndexes{
		locals: make(map[string]uint32),
		docIDs: make(map[uint32]string),
		fields: make(map[string]*fieldIndex),
	}
}

func (ci *collectionIndexes) local(docID string) uint32 {
	if local, ok := ci.locals[docID]; ok {
		return local
	}
	local := ci.next
	ci.next++
	ci.locals[docID] = local
	ci.docIDs[local] = docID
	return local
}

func (ci *collectionIndexes) release(docID string) {
	local, ok := ci.locals[docID]
	if !ok {
		return
	}
	delete(ci.locals, docID)
	delete(ci.docIDs, local)
}

// Manager owns every secondary index, keyed by collection and field.
type Manager struct {
	mu          sync.RWMutex
	collections map[string]*collectionIndexes
}

// NewManager creates an empty index manager.
func NewManager() *Manager {
	return &Manager{collections: make(map[string]*collectionIndexes)}
}

func (m *Manager) collection(name string) *collectionIndexes {
	ci, ok := m.collections[name]
	if !ok {
		ci = newCollectionIndexes()
		m.collections[name] = ci
	}
	return ci
}

// indexKey returns the posting key for a document's field. A missing
// field keys under "undefined".
func indexKey(doc document.Document, field string) string {
	return doc[field].Key()
}

func hasField(doc document.Document, field string) bool {
	v, ok := doc[field]
	return ok && v.Present()
}

// Create builds an index over the given documents in document order and
// installs it, replacing any prior index on the same field.
//
// On a uniqueness violation the partially built index is discarded, no
// state changes, and the error names the offending field.
func (m *Manager) Create(collection, field string, cfg Config, docs []document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci := m.collection(collection)
	fi := newFieldIndex(cfg)
	for _, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			continue
		}
		if cfg.Sparse && !hasField(doc, field) {
			continue
		}
		key := indexKey(doc, field)
		if cfg.Unique && fi.taken(key) {
			return &ErrUniqueConstraint{Field: field}
		}
		fi.add(key, ci.local(id))
	}
	ci.fields[field] = fi
	return nil
}

// Drop removes the index on (collection, field). It is a no-op when no
// such index exists.
func (m *Manager) Drop(collection, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ci, ok := m.collections[collection]; ok {
		delete(ci.fields, field)
	}
}

// OnInsert records a new document in every index of its collection.
//
// Checks run in two phases: first every unique index is validated, then
// all postings are applied, so a rejection leaves no partial state. The
// caller must not store the document when an error is returned.
func (m *Manager) OnInsert(collection string, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ok := m.collections[collection]
	if !ok || len(ci.fields) == 0 {
		return nil
	}
	for field, fi := range ci.fields {
		if fi.cfg.Sparse && !hasField(doc, field) {
			continue
		}
		if fi.cfg.Unique && fi.taken(indexKey(doc, field)) {
			return &ErrUniqueConstraint{Field: field}
		}
	}
	id, ok := doc.ID()
	if !ok {
		return nil
	}
	local := ci.local(id)
	for field, fi := range ci.fields {
		if fi.cfg.Sparse && !hasField(doc, field) {
			continue
		}
		fi.add(indexKey(doc, field), local)
	}
	return nil
}

// OnUpdate moves a document's postings from its old field values to its
// new ones, enforcing the same unique/sparse rules as insert.
func (m *Manager) OnUpdate(collection string, oldDoc, newDoc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ok := m.collections[collection]
	if !ok || len(ci.fields) == 0 {
		return nil
	}
	for field, fi := range ci.fields {
		if fi.cfg.Sparse && !hasField(newDoc, field) {
			continue
		}
		newKey := indexKey(newDoc, field)
		if !fi.cfg.Unique || newKey == indexKey(oldDoc, field) {
			continue
		}
		if fi.taken(newKey) {
			return &ErrUniqueConstraint{Field: field}
		}
	}
	id, ok := newDoc.ID()
	if !ok {
		return nil
	}
	local := ci.local(id)
	for field, fi := range ci.fields {
		if !fi.cfg.Sparse || hasField(oldDoc, field) {
			fi.remove(indexKey(oldDoc, field), local)
		}
		if !fi.cfg.Sparse || hasField(newDoc, field) {
			fi.add(indexKey(newDoc, field), local)
		}
	}
	return nil
}

// OnDelete removes a document from every index of its collection and
// releases its local id.
func (m *Manager) OnDelete(collection string, doc document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ok := m.collections[collection]
	if !ok {
		return
	}
	id, ok := doc.ID()
	if !ok {
		return
	}
	local, ok := ci.locals[id]
	if ok {
		for field, fi := range ci.fields {
			if fi.cfg.Sparse && !hasField(doc, field) {
				continue
			}
			fi.remove(indexKey(doc, field), local)
		}
	}
	ci.release(id)
}

// Lookup returns the ids of documents whose field equals the given
// value. ok is false when no index exists on (collection, field); the
// caller must then fall back to scanning.
func (m *Manager) Lookup(collection, field string, value document.Value) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ci, ok := m.collections[collection]
	if !ok {
		return nil, false
	}
	fi, ok := ci.fields[field]
	if !ok {
		return nil, false
	}
	ids, ok := fi.postings[value.Key()]
	if !ok {
		return nil, true
	}
	out := make([]string, 0, ids.Cardinality())
	for local := range ids.Iterator() {
		if docID, ok := ci.docIDs[local]; ok {
			out = append(out, docID)
		}
	}
	return out, true
}

// Config returns the configuration of the index on (collection, field).
func (m *Manager) Config(collection, field string) (Config, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ci, ok := m.collections[collection]; ok {
		if fi, ok := ci.fields[field]; ok {
			return fi.cfg, true
		}
	}
	return Config{}, false
}

// Fields returns the indexed fields of a collection.
func (m *Manager) Fields(collection string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ci, ok := m.collections[collection]
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(ci.fields))
	for field := range ci.fields {
		fields = append(fields, field)
	}
	return fields
}

// Rebuild reconstructs every index of a collection from the given
// documents, keeping the existing configurations. It is used after a
// transaction rollback restores a collection snapshot.
func (m *Manager) Rebuild(collection string, docs []document.Document) error {
	m.mu.Lock()
	cfgs := make(map[string]Config)
	if ci, ok := m.collections[collection]; ok {
		for field, fi := range ci.fields {
			cfgs[field] = fi.cfg
		}
	}
	delete(m.collections, collection)
	m.mu.Unlock()

	for field, cfg := range cfgs {
		if err := m.Create(collection, field, cfg, docs); err != nil {
			return err
		}
	}
	return nil
}

// DropCollection forgets every index and local id of a collection.
func (m *Manager) DropCollection(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
}

package persistence

import (
	"context"
	"sync"

	"github.com/hupe1980/docgo/document"
)

// Memory is an in-memory Backend implementation for testing.
// It stores deep copies without any filesystem dependency.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]Collection
}

// NewMemory creates a new in-memory backend.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]Collection)}
}

// Load returns a deep copy of the stored collection.
func (m *Memory) Load(_ context.Context, collection string) (Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCollection(docs), nil
}

// Save stores a deep copy of the collection.
func (m *Memory) Save(_ context.Context, collection string, docs Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = cloneCollection(docs)
	return nil
}

// Delete removes a collection. Missing collections are ignored.
func (m *Memory) Delete(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
	return nil
}

// List returns the stored collection names.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	return names, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func cloneCollection(docs Collection) Collection {
	out := make(Collection, len(docs))
	for id, doc := range docs {
		out[id] = document.Document(doc).Clone()
	}
	return out
}

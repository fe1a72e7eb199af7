package engine

import (
	"sort"

	"github.com/hupe1980/docgo/document"
)

// collection is the resident form of one collection: documents keyed by
// id plus their insertion order. The order makes index builds, scans
// and snapshots deterministic; Go map iteration is not.
type collection struct {
	name  string
	docs  map[string]document.Document
	order []string
	dirty bool
}

func newCollection(name string) *collection {
	return &collection{
		name: name,
		docs: make(map[string]document.Document),
	}
}

// fromPersisted materializes a loaded collection. The file format keeps
// no order, so documents are ordered by id for a stable scan order
// across restarts.
func fromPersisted(name string, docs map[string]document.Document) *collection {
	c := &collection{
		name:  name,
		docs:  make(map[string]document.Document, len(docs)),
		order: make([]string, 0, len(docs)),
	}
	for id, doc := range docs {
		c.docs[id] = doc
		c.order = append(c.order, id)
	}
	sort.Strings(c.order)
	return c
}

func (c *collection) get(id string) (document.Document, bool) {
	doc, ok := c.docs[id]
	return doc, ok
}

// put stores a document, appending to the order on first sight.
func (c *collection) put(id string, doc document.Document) {
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = doc
}

func (c *collection) remove(id string) {
	if _, ok := c.docs[id]; !ok {
		return
	}
	delete(c.docs, id)
	for i, other := range c.order {
		if other == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// list returns the documents in insertion order. The returned documents
// are the resident instances, not clones.
func (c *collection) list() []document.Document {
	out := make([]document.Document, 0, len(c.order))
	for _, id := range c.order {
		if doc, ok := c.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// clone deep-copies the collection, dirty flag included.
func (c *collection) clone() *collection {
	out := &collection{
		name:  c.name,
		docs:  make(map[string]document.Document, len(c.docs)),
		order: append([]string(nil), c.order...),
		dirty: c.dirty,
	}
	for id, doc := range c.docs {
		out.docs[id] = doc.Clone()
	}
	return out
}

// persisted returns the document mapping handed to the backend.
func (c *collection) persisted() map[string]document.Document {
	out := make(map[string]document.Document, len(c.docs))
	for id, doc := range c.docs {
		out[id] = doc
	}
	return out
}

package query

import (
	"sort"

	"github.com/hupe1980/docgo/document"
)

// SortKey orders results by a single field.
type SortKey struct {
	Field string
	Desc  bool
}

// FindOptions shape the result set of a find operation. They are
// applied in a fixed order: sort, then skip, then limit.
type FindOptions struct {
	// Sort lists sort keys in priority order. Sorting is stable:
	// documents whose key values have no defined order keep their
	// relative position.
	Sort []SortKey
	// Skip drops the first n results after sorting.
	Skip int
	// Limit caps the number of results; zero or negative means no limit.
	Limit int
}

// Apply sorts, skips and limits the given result slice in place and
// returns the shaped result.
func (o *FindOptions) Apply(docs []document.Document) []document.Document {
	if o == nil {
		return docs
	}
	if len(o.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			return o.less(docs[i], docs[j])
		})
	}
	if o.Skip > 0 {
		if o.Skip >= len(docs) {
			return docs[:0]
		}
		docs = docs[o.Skip:]
	}
	if o.Limit > 0 && o.Limit < len(docs) {
		docs = docs[:o.Limit]
	}
	return docs
}

func (o *FindOptions) less(a, b document.Document) bool {
	for _, key := range o.Sort {
		av, aok := a[key.Field]
		bv, bok := b[key.Field]
		aok = aok && av.Present()
		bok = bok && bv.Present()

		// An absent value sorts before any present value.
		if aok != bok {
			if key.Desc {
				return aok
			}
			return bok
		}
		if !aok {
			continue
		}
		c, ok := av.Compare(bv)
		if !ok || c == 0 {
			continue
		}
		if key.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

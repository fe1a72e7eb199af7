// This file implements a fluent find API for querying collections.
package docgo

import (
	"context"
	"fmt"

	"github.com/hupe1980/docgo/document"
	"github.com/hupe1980/docgo/query"
)

// SortDir is the direction of a sort key.
type SortDir bool

const (
	// Asc sorts ascending.
	Asc SortDir = false
	// Desc sorts descending.
	Desc SortDir = true
)

// Query creates a fluent find builder for the given collection.
//
// Example:
//
//	docs, err := db.Query("users").
//	    Where("age", docgo.Gt(26)).
//	    SortBy("age", docgo.Desc).
//	    Skip(1).
//	    Limit(2).
//	    All(ctx)
func (db *DB) Query(collection string) *QueryBuilder {
	return &QueryBuilder{
		db:         db,
		collection: collection,
		conditions: document.Document{},
	}
}

// QueryBuilder is a fluent builder for find operations. It only shapes
// the query and options; execution goes through the ordinary find path.
type QueryBuilder struct {
	db         *DB
	collection string
	conditions document.Document
	opts       query.FindOptions
	err        error
}

// Where adds a field condition. cond is either a plain value (exact
// equality) or an operator condition built with Eq, Gt, In, etc.
func (qb *QueryBuilder) Where(field string, cond any) *QueryBuilder {
	v, err := document.FromAny(cond)
	if err != nil && qb.err == nil {
		qb.err = fmt.Errorf("condition for field %q: %w", field, err)
	}
	qb.conditions[field] = v
	return qb
}

// Or matches documents satisfying any of the given sub-queries.
func (qb *QueryBuilder) Or(subs ...map[string]any) *QueryBuilder {
	list := make([]document.Value, 0, len(subs))
	for _, sub := range subs {
		d, err := document.FromMap(sub)
		if err != nil && qb.err == nil {
			qb.err = err
		}
		list = append(list, document.Map(d))
	}
	qb.conditions[string(query.OpOr)] = document.Array(list...)
	return qb
}

// SortBy appends a sort key. Keys apply in the order they were added.
func (qb *QueryBuilder) SortBy(field string, dir SortDir) *QueryBuilder {
	qb.opts.Sort = append(qb.opts.Sort, query.SortKey{Field: field, Desc: bool(dir)})
	return qb
}

// Skip drops the first n results after sorting.
func (qb *QueryBuilder) Skip(n int) *QueryBuilder {
	qb.opts.Skip = n
	return qb
}

// Limit caps the number of results.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.opts.Limit = n
	return qb
}

// All executes the query and returns every match.
func (qb *QueryBuilder) All(ctx context.Context) ([]document.Document, error) {
	if qb.err != nil {
		return nil, qb.err
	}

	docs, err := qb.db.store.Find(ctx, qb.collection, qb.conditions, &qb.opts)
	if err != nil {
		return nil, translateError(err)
	}
	return docs, nil
}

// First executes the query and returns the first match, or ErrNotFound.
func (qb *QueryBuilder) First(ctx context.Context) (document.Document, error) {
	qb.opts.Limit = 1
	docs, err := qb.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// Count executes the query and returns the number of matches, ignoring
// skip and limit.
func (qb *QueryBuilder) Count(ctx context.Context) (int, error) {
	if qb.err != nil {
		return 0, qb.err
	}

	n, err := qb.db.store.Count(ctx, qb.collection, qb.conditions)
	if err != nil {
		return 0, translateError(err)
	}
	return n, nil
}

// condition builds a single-operator condition map. Unsupported operand
// types surface when the builder executes.
func condition(op query.Operator, operand any) map[string]any {
	return map[string]any{string(op): operand}
}

// Eq matches values equal to v.
func Eq(v any) map[string]any { return condition(query.OpEq, v) }

// Gt matches values ordered after v.
func Gt(v any) map[string]any { return condition(query.OpGt, v) }

// Gte matches values ordered after or equal to v.
func Gte(v any) map[string]any { return condition(query.OpGte, v) }

// Lt matches values ordered before v.
func Lt(v any) map[string]any { return condition(query.OpLt, v) }

// Lte matches values ordered before or equal to v.
func Lte(v any) map[string]any { return condition(query.OpLte, v) }

// In matches values contained in vs.
func In(vs ...any) map[string]any { return condition(query.OpIn, vs) }

// Nin matches values not contained in vs.
func Nin(vs ...any) map[string]any { return condition(query.OpNin, vs) }

// Ne matches values not equal to v.
func Ne(v any) map[string]any { return condition(query.OpNe, v) }

// Exists matches on field presence.
func Exists(present bool) map[string]any { return condition(query.OpExists, present) }

// Type matches on the field's JSON type name.
func Type(name string) map[string]any { return condition(query.OpType, name) }

// Regex matches string values against the pattern.
func Regex(pattern string) map[string]any { return condition(query.OpRegex, pattern) }

// All matches lists containing every element of vs.
func All(vs ...any) map[string]any { return condition(query.OpAll, vs) }

// Size matches lists of exactly n elements.
func Size(n int) map[string]any { return condition(query.OpSize, n) }

// ElemMatch matches lists where any element satisfies the condition.
func ElemMatch(cond map[string]any) map[string]any { return condition(query.OpElemMatch, cond) }

// Not negates the condition.
func Not(cond any) map[string]any { return condition(query.OpNot, cond) }

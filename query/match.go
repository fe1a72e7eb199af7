package query

import (
	"github.com/hupe1980/docgo/document"
)

// Matches reports whether a document satisfies a query.
//
// A query maps keys to conditions. The keys $or, $and and $not are
// top-level combinators over sub-query lists; every other key is a
// field condition: a plain value requires exact equality, an operator
// document requires every operator in it to hold. All conditions in a
// query are conjunctive unless combined via $or.
//
// A nil or empty query matches every document.
func Matches(doc document.Document, q document.Document) bool {
	for key, cond := range q {
		switch Operator(key) {
		case OpOr:
			if !matchOr(doc, cond) {
				return false
			}
		case OpAnd:
			if !matchAnd(doc, cond) {
				return false
			}
		case OpNot:
			sub, ok := cond.AsMap()
			if !ok || Matches(doc, sub) {
				return false
			}
		default:
			if !matchField(doc, key, cond) {
				return false
			}
		}
	}
	return true
}

func matchOr(doc document.Document, cond document.Value) bool {
	subs, ok := cond.AsArray()
	if !ok {
		return false
	}
	for _, sub := range subs {
		sq, ok := sub.AsMap()
		if ok && Matches(doc, sq) {
			return true
		}
	}
	return false
}

func matchAnd(doc document.Document, cond document.Value) bool {
	subs, ok := cond.AsArray()
	if !ok {
		return false
	}
	for _, sub := range subs {
		sq, ok := sub.AsMap()
		if !ok || !Matches(doc, sq) {
			return false
		}
	}
	return true
}

func matchField(doc document.Document, field string, cond document.Value) bool {
	fv, present := doc[field]
	present = present && fv.Present()

	if ops, ok := operatorMap(cond); ok {
		return evalOperatorMap(ops, fv, present)
	}
	return present && fv.Equal(cond)
}

// MatchesEquality reports whether every key of q equals the document's
// field value exactly. This is the reduced matching used by update and
// delete, which do not interpret operators.
func MatchesEquality(doc document.Document, q document.Document) bool {
	for k, want := range q {
		got, ok := doc[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

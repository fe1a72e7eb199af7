// Package query implements the operator language used to match documents.
//
// The engine is pure: evaluating an operator against a field value
// allocates nothing beyond the boolean result and never mutates the
// document or the query. Unknown operators never match; they do not
// panic or return errors.
package query

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hupe1980/docgo/document"
)

// Operator represents a comparison operator for matching field values.
type Operator string

const (
	// OpEq matches values strictly equal to the operand.
	OpEq Operator = "$eq"
	// OpGt matches values ordered after the operand.
	OpGt Operator = "$gt"
	// OpGte matches values ordered after or equal to the operand.
	OpGte Operator = "$gte"
	// OpLt matches values ordered before the operand.
	OpLt Operator = "$lt"
	// OpLte matches values ordered before or equal to the operand.
	OpLte Operator = "$lte"
	// OpIn matches values contained in the operand list.
	OpIn Operator = "$in"
	// OpNin matches values not contained in the operand list.
	OpNin Operator = "$nin"
	// OpNe matches values not equal to the operand.
	OpNe Operator = "$ne"
	// OpExists matches on field presence or absence.
	OpExists Operator = "$exists"
	// OpType matches on the field value's JSON type name.
	OpType Operator = "$type"
	// OpRegex matches string values against a compiled pattern.
	OpRegex Operator = "$regex"
	// OpAll matches lists containing every operand element.
	OpAll Operator = "$all"
	// OpSize matches lists of exactly the operand length.
	OpSize Operator = "$size"
	// OpElemMatch matches lists where any element satisfies the operand.
	OpElemMatch Operator = "$elemMatch"
	// OpNot negates the operand condition.
	OpNot Operator = "$not"
	// OpAnd combines sub-queries conjunctively (top level only).
	OpAnd Operator = "$and"
	// OpOr combines sub-queries disjunctively (top level only).
	OpOr Operator = "$or"
)

// evalFunc evaluates a single operator against a field value.
// present is false when the document has no such field at all.
type evalFunc func(operand, field document.Value, present bool) bool

// operators is the dispatch table for field-level operators. $and and
// $or are top-level combinators and intentionally absent: used inside a
// field condition they behave as unknown operators and never match.
var operators = map[Operator]evalFunc{
	OpEq:     evalEq,
	OpGt:     compareOp(func(c int) bool { return c > 0 }),
	OpGte:    compareOp(func(c int) bool { return c >= 0 }),
	OpLt:     compareOp(func(c int) bool { return c < 0 }),
	OpLte:    compareOp(func(c int) bool { return c <= 0 }),
	OpIn:     evalIn,
	OpNin:    evalNin,
	OpNe:     evalNe,
	OpExists: evalExists,
	OpType:   evalType,
	OpRegex:  evalRegex,
	OpAll:    evalAll,
	OpSize:   evalSize,
}

// $elemMatch and $not recurse through Evaluate, so registering them in
// the composite literal would make the table's initializer refer to
// itself. Registered here instead.
func init() {
	operators[OpElemMatch] = evalElemMatch
	operators[OpNot] = evalNot
}

// Evaluate applies a single operator to a field value.
//
// Unknown operators evaluate to false: a document never matches a field
// condition bearing an operator this engine does not implement.
func Evaluate(op Operator, operand, field document.Value, present bool) bool {
	fn, ok := operators[op]
	if !ok {
		return false
	}
	return fn(operand, field, present)
}

func evalEq(operand, field document.Value, present bool) bool {
	return present && field.Equal(operand)
}

func evalNe(operand, field document.Value, present bool) bool {
	return !evalEq(operand, field, present)
}

func compareOp(accept func(int) bool) evalFunc {
	return func(operand, field document.Value, present bool) bool {
		if !present {
			return false
		}
		c, ok := field.Compare(operand)
		return ok && accept(c)
	}
}

func evalIn(operand, field document.Value, present bool) bool {
	list, ok := operand.AsArray()
	if !ok || !present {
		return false
	}
	for _, item := range list {
		if field.Equal(item) {
			return true
		}
	}
	return false
}

func evalNin(operand, field document.Value, present bool) bool {
	if _, ok := operand.AsArray(); !ok {
		return false
	}
	return !evalIn(operand, field, present)
}

func evalExists(operand, field document.Value, present bool) bool {
	if truthy(operand) {
		return present
	}
	return !present
}

func evalType(operand, field document.Value, present bool) bool {
	name, ok := operand.AsString()
	if !ok || !present {
		return false
	}
	return field.Kind().String() == name
}

func evalRegex(operand, field document.Value, _ bool) bool {
	pattern, ok := operand.AsString()
	if !ok {
		return false
	}
	s, ok := field.AsString()
	if !ok {
		return false
	}
	re, ok := compileRegex(pattern)
	if !ok {
		return false
	}
	return re.MatchString(s)
}

func evalAll(operand, field document.Value, _ bool) bool {
	want, ok := operand.AsArray()
	if !ok {
		return false
	}
	have, ok := field.AsArray()
	if !ok {
		return false
	}
	for _, w := range want {
		found := false
		for _, h := range have {
			if h.Equal(w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func evalSize(operand, field document.Value, _ bool) bool {
	list, ok := field.AsArray()
	if !ok {
		return false
	}
	switch operand.Kind() {
	case document.KindInt:
		n, _ := operand.AsInt64()
		return int64(len(list)) == n
	case document.KindFloat:
		f, _ := operand.AsFloat64()
		return float64(len(list)) == f
	default:
		return false
	}
}

func evalElemMatch(operand, field document.Value, _ bool) bool {
	list, ok := field.AsArray()
	if !ok {
		return false
	}
	sub, isOps := operatorMap(operand)
	for _, elem := range list {
		if isOps {
			if evalOperatorMap(sub, elem, true) {
				return true
			}
		} else if elem.Equal(operand) {
			return true
		}
	}
	return false
}

func evalNot(operand, field document.Value, present bool) bool {
	if sub, ok := operatorMap(operand); ok {
		// Every sub-operator must fail for the negation to hold.
		for op, arg := range sub {
			if Evaluate(op, arg, field, present) {
				return false
			}
		}
		return true
	}
	return !field.Equal(operand)
}

// operatorMap interprets a value as an operator condition: a nested
// document whose keys all start with '$'.
func operatorMap(v document.Value) (map[Operator]document.Value, bool) {
	m, ok := v.AsMap()
	if !ok || len(m) == 0 {
		return nil, false
	}
	out := make(map[Operator]document.Value, len(m))
	for k, arg := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
		out[Operator(k)] = arg
	}
	return out, true
}

// IsEqualityCondition reports whether a field condition is a plain
// value requiring exact equality, as opposed to an operator document.
// Index lookups accelerate only equality conditions.
func IsEqualityCondition(v document.Value) bool {
	_, isOps := operatorMap(v)
	return !isOps
}

// evalOperatorMap evaluates a conjunction of operators against one value.
func evalOperatorMap(ops map[Operator]document.Value, field document.Value, present bool) bool {
	for op, arg := range ops {
		if !Evaluate(op, arg, field, present) {
			return false
		}
	}
	return true
}

// truthy follows JSON truthiness: false, 0, "", null and absent values
// are falsy; everything else is truthy.
func truthy(v document.Value) bool {
	switch v.Kind() {
	case document.KindBool:
		b, _ := v.AsBool()
		return b
	case document.KindInt:
		n, _ := v.AsInt64()
		return n != 0
	case document.KindFloat:
		f, _ := v.AsFloat64()
		return f != 0
	case document.KindString:
		s, _ := v.AsString()
		return s != ""
	case document.KindArray, document.KindMap:
		return true
	default:
		return false
	}
}

// regexCache holds compiled $regex patterns. Matching is read-heavy and
// patterns repeat across find calls, so an LRU keeps compilation off the
// per-document path.
var regexCache, _ = lru.New[string, *regexp.Regexp](128)

func compileRegex(pattern string) (*regexp.Regexp, bool) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	regexCache.Add(pattern, re)
	return re, true
}

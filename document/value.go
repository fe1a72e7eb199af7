package document

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an absent field value. The zero Value has this kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents an array value.
	KindArray
	// KindMap represents a nested document value.
	KindMap
)

// String returns the JSON type name of the kind. Int and Float both
// report "number", matching JSON's type system.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt, KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindMap:
		return "object"
	default:
		return "undefined"
	}
}

// Value is a small typed value used for documents and queries.
//
// The representation is a closed tagged union over the JSON value space:
// no reflection and no fmt-based stringification on hot paths.
// The zero Value represents an absent field.
type Value struct {
	kind Kind
	i64  int64
	f64  float64
	str  string
	b    bool
	arr  []Value
	obj  Document
}

// Kind returns the kind tag of the value.
func (v Value) Kind() Kind { return v.kind }

// Present reports whether the value holds anything at all, including null.
// The zero Value is not present.
func (v Value) Present() bool { return v.kind != KindInvalid }

// Null returns a null Value.
func Null() Value { return Value{kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{kind: KindInt, i64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{kind: KindFloat, f64: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Array returns an array Value.
func Array(v ...Value) Value { return Value{kind: KindArray, arr: v} }

// Map returns a nested document Value.
func Map(d Document) Value { return Value{kind: KindMap, obj: d} }

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i64, true
}

// AsFloat64 returns the float64 value if Kind is KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f64, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsMap returns the nested document if Kind is KindMap.
func (v Value) AsMap() (Document, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.obj, true
}

// IsNumber reports whether the value is an int or float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String renders the value as it would appear in JSON, except that
// strings are unquoted. Implements fmt.Stringer so values print
// naturally with %v.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i := range v.arr {
			parts[i] = v.arr[i].String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.obj.sortedKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.obj[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<undefined>"
	}
}

func (v Value) asFloat64() float64 {
	if v.kind == KindInt {
		return float64(v.i64)
	}
	return v.f64
}

// Key returns a stable string representation for use as an index posting key.
//
// Numeric values are normalized so that Int(5) and Float(5.0) produce the
// same key; both can round-trip through JSON as the same document value.
// An absent field keys under "undefined".
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return "n:" + strconv.FormatInt(v.i64, 10)
	case KindFloat:
		if v.f64 == math.Trunc(v.f64) && !math.IsInf(v.f64, 0) {
			return "n:" + strconv.FormatInt(int64(v.f64), 10)
		}
		return "n:" + strconv.FormatUint(math.Float64bits(v.f64), 16)
	case KindString:
		return "s:" + v.str
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindArray:
		if len(v.arr) == 0 {
			return "a:"
		}
		parts := make([]string, len(v.arr))
		for i := range v.arr {
			parts[i] = v.arr[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	case KindMap:
		keys := v.obj.sortedKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"\x1e"+v.obj[k].Key())
		}
		return "m:" + strings.Join(parts, "\x1f")
	default:
		return "undefined"
	}
}

// Equal reports deep equality. Int and Float values compare numerically,
// so Int(5) equals Float(5.0).
func (v Value) Equal(other Value) bool {
	if v.IsNumber() && other.IsNumber() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.i64 == other.i64
		}
		return v.asFloat64() == other.asFloat64()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInvalid, KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindBool:
		return v.b == other.b
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, ov := range v.obj {
			if !ov.Equal(other.obj[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values. ok is false when the pair has no defined
// order: numbers order against numbers, strings against strings, and
// booleans against booleans (false < true); everything else is
// incomparable.
func (v Value) Compare(other Value) (int, bool) {
	if v.IsNumber() && other.IsNumber() {
		if v.kind == KindInt && other.kind == KindInt {
			switch {
			case v.i64 < other.i64:
				return -1, true
			case v.i64 > other.i64:
				return 1, true
			default:
				return 0, true
			}
		}
		a, b := v.asFloat64(), other.asFloat64()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.kind == KindString && other.kind == KindString {
		return strings.Compare(v.str, other.str), true
	}
	if v.kind == KindBool && other.kind == KindBool {
		switch {
		case v.b == other.b:
			return 0, true
		case other.b:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// Clone creates a deep copy of a Value, including nested arrays and maps.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		if len(v.arr) == 0 {
			return v
		}
		arr := make([]Value, len(v.arr))
		for i := range v.arr {
			arr[i] = v.arr[i].Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindMap:
		return Value{kind: KindMap, obj: v.obj.Clone()}
	default:
		// Scalar values are copied by value semantics.
		return v
	}
}

// Document is a typed document: a mapping from field name to Value.
type Document map[string]Value

// ID returns the document's id field, if set.
func (d Document) ID() (string, bool) {
	return d["id"].AsString()
}

// Clone creates a deep copy of the document.
//
// This is the safe default to prevent external mutation after a document
// has been stored: values are deep copied, including arrays and nested
// documents, so the clone is completely independent from the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = v.Clone()
	}
	return clone
}

func (d Document) sortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	// Insertion sort; documents are small.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

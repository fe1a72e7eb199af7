package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromAny converts a Go value into a typed Value.
//
// This exists as an adapter layer for user input and decoded JSON.
// json.Number values are converted to Int when they carry no fractional
// part and fit in an int64, otherwise to Float.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case Document:
		return Map(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("document: invalid number %q", x.String())
		}
		return Float(f), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		if x > uint64(math.MaxInt64) {
			// Avoid silently truncating large values.
			return Value{}, fmt.Errorf("document: uint64 out of range: %d", x)
		}
		return Int(int64(x)), nil
	case []Value:
		return Array(x...), nil
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = vv
		}
		return Array(arr...), nil
	case []string:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = String(x[i])
		}
		return Array(arr...), nil
	case []int:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Int(int64(x[i]))
		}
		return Array(arr...), nil
	case []float64:
		arr := make([]Value, len(x))
		for i := range x {
			arr[i] = Float(x[i])
		}
		return Array(arr...), nil
	case map[string]any:
		doc, err := FromMap(x)
		if err != nil {
			return Value{}, err
		}
		return Map(doc), nil
	default:
		return Value{}, fmt.Errorf("document: unsupported value type %T", v)
	}
}

// FromMap converts a map into a typed Document.
func FromMap(m map[string]any) (Document, error) {
	doc := make(Document, len(m))
	for k, v := range m {
		vv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = vv
	}
	return doc, nil
}

// MustFromMap is a test/fixture helper that panics on conversion failure.
func MustFromMap(m map[string]any) Document {
	doc, err := FromMap(m)
	if err != nil {
		panic(err)
	}
	return doc
}

// ToAny converts a Value back to a plain Go value.
func ToAny(v Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindInt:
		return v.i64
	case KindFloat:
		return v.f64
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i := range v.arr {
			out[i] = ToAny(v.arr[i])
		}
		return out
	case KindMap:
		return v.obj.ToMap()
	default:
		return nil
	}
}

// ToMap converts the document back to a plain map.
func (d Document) ToMap() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = ToAny(v)
	}
	return out
}

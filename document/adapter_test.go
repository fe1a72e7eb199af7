package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	t.Run("Scalars", func(t *testing.T) {
		tests := []struct {
			name     string
			input    any
			expected Value
		}{
			{"nil", nil, Null()},
			{"Value", Int(1), Int(1)},
			{"bool", true, Bool(true)},
			{"string", "hello", String("hello")},
			{"float64", 3.14, Float(3.14)},
			{"float32", float32(1.5), Float(1.5)},
			{"int", int(1), Int(1)},
			{"int64", int64(-9), Int(-9)},
			{"uint32", uint32(math.MaxUint32), Int(int64(math.MaxUint32))},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				v, err := FromAny(tc.input)
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, v)
			})
		}
	})

	t.Run("Uint64_Range", func(t *testing.T) {
		v, err := FromAny(uint64(math.MaxInt64))
		assert.NoError(t, err)
		i, _ := v.AsInt64()
		assert.Equal(t, int64(math.MaxInt64), i)

		_, err = FromAny(uint64(math.MaxInt64) + 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("JSONNumber", func(t *testing.T) {
		// Integral numbers decode as Int, fractional as Float.
		v, err := FromAny(json.Number("42"))
		require.NoError(t, err)
		assert.Equal(t, Int(42), v)

		v, err = FromAny(json.Number("42.5"))
		require.NoError(t, err)
		assert.Equal(t, Float(42.5), v)

		_, err = FromAny(json.Number("not-a-number"))
		assert.Error(t, err)
	})

	t.Run("Slices", func(t *testing.T) {
		v, err := FromAny([]any{1, "two", 3.0})
		require.NoError(t, err)
		assert.Equal(t, Array(Int(1), String("two"), Float(3.0)), v)

		v, err = FromAny([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, Array(String("a"), String("b")), v)

		v, err = FromAny([]int{1, 2})
		require.NoError(t, err)
		assert.Equal(t, Array(Int(1), Int(2)), v)
	})

	t.Run("Map", func(t *testing.T) {
		v, err := FromAny(map[string]any{"age": 31})
		require.NoError(t, err)
		m, ok := v.AsMap()
		require.True(t, ok)
		assert.Equal(t, Int(31), m["age"])
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := FromAny(struct{}{})
		assert.Error(t, err)

		_, err = FromAny([]any{struct{}{}})
		assert.Error(t, err)
	})
}

func TestFromMapRoundTrip(t *testing.T) {
	in := map[string]any{
		"name":   "Mia",
		"age":    31,
		"score":  9.5,
		"active": true,
		"tags":   []any{"a", "b"},
		"meta":   map[string]any{"level": 2},
		"none":   nil,
	}

	doc, err := FromMap(in)
	require.NoError(t, err)

	out := doc.ToMap()
	assert.Equal(t, "Mia", out["name"])
	assert.Equal(t, int64(31), out["age"])
	assert.Equal(t, 9.5, out["score"])
	assert.Equal(t, true, out["active"])
	assert.Equal(t, []any{"a", "b"}, out["tags"])
	assert.Equal(t, map[string]any{"level": int64(2)}, out["meta"])
	assert.Nil(t, out["none"])
}

func TestMustFromMap(t *testing.T) {
	doc := MustFromMap(map[string]any{"a": 1})
	assert.Equal(t, Int(1), doc["a"])

	assert.Panics(t, func() {
		MustFromMap(map[string]any{"bad": struct{}{}})
	})
}

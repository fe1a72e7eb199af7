package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueJSONRoundTrip(t *testing.T) {
	orig := Document{
		"id":     String("u1"),
		"age":    Int(31),
		"score":  Float(9.5),
		"active": Bool(true),
		"tags":   Array(String("a"), String("b")),
		"meta":   Map(Document{"level": Int(2)}),
		"none":   Null(),
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Integral numbers survive as Int, not Float.
	assert.Equal(t, Int(31), decoded["age"])
	assert.Equal(t, Float(9.5), decoded["score"])
	assert.Equal(t, orig["tags"], decoded["tags"])
	assert.Equal(t, orig["meta"], decoded["meta"])
	assert.Equal(t, Null(), decoded["none"])

	// Index posting keys are stable across the round trip.
	for field := range orig {
		assert.Equal(t, orig[field].Key(), decoded[field].Key(), "field %q", field)
	}
}

func TestValueMarshalPlainJSON(t *testing.T) {
	// Documents persist as plain JSON values, not tagged structs.
	data, err := json.Marshal(Document{"age": Int(31)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"age":31}`, string(data))
}

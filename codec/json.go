package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Collection files written with either built-in codec are plain JSON and
// remain mutually readable; the codec choice only affects encode speed.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// MarshalIndent encodes the value to indented JSON for pretty-printed
// collection files.
func (JSON) MarshalIndent(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the library.
var Default Codec = GoJSON{}

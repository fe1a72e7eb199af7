package document

import (
	"bytes"
	"encoding/json"
)

// Documents persist as plain JSON values, not tagged structs: Int(30)
// marshals as 30, Map marshals as a JSON object. This keeps collection
// files readable and editable by ordinary JSON tooling.

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToAny(v))
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Numbers without a fractional part decode as KindInt, everything else
// as KindFloat, matching the FromAny adapter rules.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

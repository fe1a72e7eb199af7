package document

import (
	"fmt"
)

// FieldType defines the expected data type of a document field.
type FieldType uint8

const (
	FieldTypeAny FieldType = iota
	FieldTypeInt
	FieldTypeFloat
	FieldTypeString
	FieldTypeBool
	FieldTypeArray
	FieldTypeMap
)

// String returns the string representation of the FieldType.
func (t FieldType) String() string {
	switch t {
	case FieldTypeAny:
		return "Any"
	case FieldTypeInt:
		return "Int"
	case FieldTypeFloat:
		return "Float"
	case FieldTypeString:
		return "String"
	case FieldTypeBool:
		return "Bool"
	case FieldTypeArray:
		return "Array"
	case FieldTypeMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// Schema defines the expected structure of documents in a collection.
// Fields not listed in the schema are accepted as-is.
type Schema map[string]FieldType

// Validate checks if the given document conforms to the schema.
// Null is always valid for a known field.
func (s Schema) Validate(doc Document) error {
	if s == nil {
		return nil
	}
	for k, v := range doc {
		expected, ok := s[k]
		if !ok {
			continue
		}
		if !checkKind(v.Kind(), expected) {
			return fmt.Errorf("field %q has invalid type %s, expected %s", k, v.Kind(), expected)
		}
	}
	return nil
}

// ValidateMap checks if the given untyped map conforms to the schema.
// This is useful for validating raw input before conversion.
func (s Schema) ValidateMap(m map[string]any) error {
	if s == nil {
		return nil
	}
	doc, err := FromMap(m)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}

func checkKind(k Kind, expected FieldType) bool {
	if k == KindNull {
		return true
	}
	switch expected {
	case FieldTypeAny:
		return true
	case FieldTypeInt:
		return k == KindInt
	case FieldTypeFloat:
		return k == KindFloat || k == KindInt // Allow upgrading Int to Float
	case FieldTypeString:
		return k == KindString
	case FieldTypeBool:
		return k == KindBool
	case FieldTypeArray:
		return k == KindArray
	case FieldTypeMap:
		return k == KindMap
	}
	return false
}

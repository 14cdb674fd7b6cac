package field

import (
	"fmt"
	"regexp"
)

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// Tag is an exact-match field; every facet attribute is a tag field.
	Tag     Type = "tag"
	Numeric Type = "numeric"
	Text    Type = "text"
)

// IsValid checks if the field type is supported.
func (t Type) IsValid() bool {
	return t == Tag || t == Numeric || t == Text
}

// Dots are allowed so hierarchical level attributes ("categories.lvl0") can be declared.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

var reservedFieldNames = map[string]bool{
	"objectID": true, "_tags": true,
}

// Field is an immutable value object describing an indexed record attribute.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
// Name must be non-empty, max 64 chars, and not reserved.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !nameRegex.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q contains invalid characters", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }

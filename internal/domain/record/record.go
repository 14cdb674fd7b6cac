package record

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IDAttribute is the attribute holding the record identifier in hits.
const IDAttribute = "objectID"

// Record is a searchable record (immutable value object).
type Record struct {
	id       string
	tags     map[string][]string
	numerics map[string]float64
	text     map[string]string
}

// New validates and creates a Record.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Tag values must not contain
// index.TagSeparator, which joins them in storage. Attribute schema validation happens in FromAttributes.
func New(id string, tags map[string][]string, numerics map[string]float64, text map[string]string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	if len(id) > 256 {
		return Record{}, fmt.Errorf("record ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Record{}, fmt.Errorf("record ID must be alphanumeric with underscores and hyphens")
	}
	for name, values := range tags {
		for _, v := range values {
			if strings.Contains(v, index.TagSeparator) {
				return Record{}, fmt.Errorf("attribute %q: value %q must not contain %q", name, v, index.TagSeparator)
			}
		}
	}
	return Record{
		id:       id,
		tags:     cloneTags(tags),
		numerics: cloneMap(numerics),
		text:     cloneMap(text),
	}, nil
}

// FromAttributes builds a record from a decoded JSON object, checking every
// attribute against the index schema. Tag attributes accept a string or a
// list of strings; "_tags" is always accepted as a list.
func FromAttributes(idx index.Index, attrs map[string]any) (Record, error) {
	id, ok := attrs[IDAttribute].(string)
	if !ok {
		return Record{}, fmt.Errorf("%s must be a string", IDAttribute)
	}

	tags := make(map[string][]string)
	numerics := make(map[string]float64)
	text := make(map[string]string)

	for name, raw := range attrs {
		if name == IDAttribute {
			continue
		}
		if name == index.TagsAttribute {
			values, err := stringList(name, raw)
			if err != nil {
				return Record{}, err
			}
			tags[name] = values
			continue
		}
		f, ok := idx.FieldByName(name)
		if !ok {
			return Record{}, fmt.Errorf("attribute %q is not declared in index %q", name, idx.Name())
		}
		switch f.FieldType() {
		case field.Tag:
			values, err := stringList(name, raw)
			if err != nil {
				return Record{}, err
			}
			tags[name] = values
		case field.Numeric:
			n, ok := raw.(float64)
			if !ok {
				return Record{}, fmt.Errorf("attribute %q must be a number", name)
			}
			numerics[name] = n
		case field.Text:
			s, ok := raw.(string)
			if !ok {
				return Record{}, fmt.Errorf("attribute %q must be a string", name)
			}
			text[name] = s
		}
	}

	return New(id, tags, numerics, text)
}

func stringList(name string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("attribute %q must contain only strings", name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("attribute %q must be a string or a list of strings", name)
	}
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id string, tags map[string][]string, numerics map[string]float64, text map[string]string) Record {
	return Record{id: id, tags: tags, numerics: numerics, text: text}
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Tags returns the tag attributes.
func (r Record) Tags() map[string][]string { return r.tags }

// Numerics returns the numeric attributes.
func (r Record) Numerics() map[string]float64 { return r.numerics }

// Text returns the full-text attributes.
func (r Record) Text() map[string]string { return r.text }

// Attributes renders the record as a hit object. Single-valued tags
// render as strings, multi-valued ones as lists, "_tags" always as a list.
func (r Record) Attributes() map[string]any {
	out := make(map[string]any, 1+len(r.tags)+len(r.numerics)+len(r.text))
	out[IDAttribute] = r.id
	for k, v := range r.text {
		out[k] = v
	}
	for k, v := range r.numerics {
		out[k] = v
	}
	for k, v := range r.tags {
		if len(v) == 1 && k != index.TagsAttribute {
			out[k] = v[0]
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// TagNames returns the tag attribute names in sorted order.
func (r Record) TagNames() []string {
	names := make([]string, 0, len(r.tags))
	for k := range r.tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func cloneTags(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	c := make(map[string][]string, len(m))
	for k, v := range m {
		c[k] = append([]string(nil), v...)
	}
	return c
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

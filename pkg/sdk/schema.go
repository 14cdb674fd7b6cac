package facetdex

import (
	"fmt"
	"reflect"
	"strings"
)

const tagKey = "facetdex"

// builtinTags is the multi-valued tag attribute every index carries.
const builtinTags = "_tags"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ reflect.Type

	idIdx int
	// Schema fields for index creation.
	fields []FieldInfo
	// Attribute mappings by struct field index.
	attrs []attrMapping
}

type attrMapping struct {
	structIdx int
	name      string
	kind      FieldType
	multi     bool // []string tag
}

// parseSchema reflects on T and extracts facetdex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("facetdex: type parameter must be a struct")
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("facetdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("facetdex: tagged field %s is unexported", f.Name)
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("facetdex: no field with `facetdex:\"...,id\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's facetdex tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		return fmt.Errorf("facetdex: empty attribute name on field %s", f.Name)
	}

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("facetdex: duplicate id tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("facetdex: id field %s must be a string", f.Name)
		}
		meta.idIdx = idx
	case "tag":
		multi := f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() == reflect.String
		if !multi && f.Type.Kind() != reflect.String {
			return fmt.Errorf("facetdex: tag field %s must be a string or []string", f.Name)
		}
		addAttr(meta, attrMapping{structIdx: idx, name: name, kind: FieldTag, multi: multi})
	case "numeric":
		if !isNumber(f.Type.Kind()) {
			return fmt.Errorf("facetdex: numeric field %s must be an int, uint or float", f.Name)
		}
		addAttr(meta, attrMapping{structIdx: idx, name: name, kind: FieldNumeric})
	case "text":
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("facetdex: text field %s must be a string", f.Name)
		}
		addAttr(meta, attrMapping{structIdx: idx, name: name, kind: FieldText})
	default:
		return fmt.Errorf("facetdex: unknown modifier %q on field %s", modifier, f.Name)
	}
	return nil
}

func addAttr(meta *schemaMeta, m attrMapping) {
	// _tags exists on every index and is never declared.
	if m.name != builtinTags {
		meta.fields = append(meta.fields, FieldInfo{Name: m.name, Type: m.kind})
	}
	meta.attrs = append(meta.attrs, m)
}

// indexOptions builds the IndexOption slice from the parsed schema.
func (m *schemaMeta) indexOptions() []IndexOption {
	opts := make([]IndexOption, 0, len(m.fields))
	for _, f := range m.fields {
		opts = append(opts, WithField(f.Name, f.Type))
	}
	return opts
}

// toAttributes converts a typed struct to a record attribute map.
func (m *schemaMeta) toAttributes(item any) map[string]any {
	v := reflect.ValueOf(item)
	out := make(map[string]any, 1+len(m.attrs))
	out["objectID"] = v.Field(m.idIdx).String()
	for _, a := range m.attrs {
		fv := v.Field(a.structIdx)
		switch a.kind {
		case FieldNumeric:
			out[a.name] = toFloat64(fv)
		case FieldTag:
			if !a.multi {
				out[a.name] = fv.String()
				continue
			}
			if fv.IsNil() {
				continue
			}
			out[a.name] = append([]string(nil), fv.Interface().([]string)...)
		default:
			out[a.name] = fv.String()
		}
	}
	return out
}

// fromAttributes fills a new T from a record attribute map, as returned by
// Get or decoded from a hit. Missing attributes keep their zero value.
func (m *schemaMeta) fromAttributes(attrs map[string]any) (any, error) {
	v := reflect.New(m.typ).Elem()

	if id, ok := attrs["objectID"].(string); ok {
		v.Field(m.idIdx).SetString(id)
	}
	for _, a := range m.attrs {
		raw, ok := attrs[a.name]
		if !ok {
			continue
		}
		fv := v.Field(a.structIdx)
		switch a.kind {
		case FieldNumeric:
			n, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("facetdex: attribute %q: expected number, got %T", a.name, raw)
			}
			setFloat(fv, n)
		case FieldTag:
			values, err := stringValues(a.name, raw)
			if err != nil {
				return nil, err
			}
			if a.multi {
				fv.Set(reflect.ValueOf(values))
			} else if len(values) > 0 {
				fv.SetString(values[0])
			}
		default:
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("facetdex: attribute %q: expected string, got %T", a.name, raw)
			}
			fv.SetString(s)
		}
	}
	return v.Interface(), nil
}

func stringValues(name string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("facetdex: attribute %q: expected strings, got %T", name, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("facetdex: attribute %q: expected string or list, got %T", name, raw)
	}
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return 0
	}
}

func setFloat(v reflect.Value, f float64) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(f))
	}
}

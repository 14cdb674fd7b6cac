package index

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

var (
	nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// Reserved names would collide with metadata and cache key namespaces.
	reservedNames = map[string]bool{"index": true, "idx": true, "cache": true}
)

// TagSeparator joins multi-valued tag attributes in storage.
const TagSeparator = "|"

// TagsAttribute is the built-in multi-valued tag attribute every index carries.
const TagsAttribute = "_tags"

// Index is the searchable record index aggregate (immutable value object).
type Index struct {
	name      string
	fields    []field.Field
	ordering  *response.FacetOrdering
	createdAt int64
	revision  int
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("index name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("index name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("index name must be alphanumeric with underscores and hyphens")
	}
	if reservedNames[name] {
		return fmt.Errorf("index name %q is reserved", name)
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	if len(fields) > 64 {
		return fmt.Errorf("too many fields (max 64)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// New validates and creates an Index.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Fields: 1-64, unique names.
func New(name string, fields []field.Field) (Index, error) {
	if err := validateName(name); err != nil {
		return Index{}, err
	}
	if err := validateFields(fields); err != nil {
		return Index{}, err
	}

	return Index{
		name:      name,
		fields:    append([]field.Field(nil), fields...),
		createdAt: time.Now().UnixMilli(),
		revision:  1,
	}, nil
}

// Reconstruct creates an Index without validation (storage hydration).
func Reconstruct(name string, fields []field.Field, createdAt int64, revision int) Index {
	return Index{name: name, fields: fields, createdAt: createdAt, revision: revision}
}

// WithFacetOrdering returns a copy that advertises the given facet ordering
// in every search response.
func (i Index) WithFacetOrdering(o *response.FacetOrdering) Index {
	i.ordering = o
	return i
}

// Revised returns a copy with the revision bumped. Cached search
// responses are keyed by revision, so any metadata change must revise.
func (i Index) Revised() Index {
	i.revision++
	return i
}

// FacetOrdering returns the facet ordering hint, nil when none is configured.
func (i Index) FacetOrdering() *response.FacetOrdering { return i.ordering }

// Name returns the index name.
func (i Index) Name() string { return i.name }

// Fields returns the declared attribute fields.
func (i Index) Fields() []field.Field { return i.fields }

// CreatedAt returns the creation timestamp (unix millis).
func (i Index) CreatedAt() int64 { return i.createdAt }

// Revision returns the optimistic concurrency version.
func (i Index) Revision() int { return i.revision }

// HasField checks if a field with the given name and type exists.
func (i Index) HasField(name string, ft field.Type) bool {
	for _, f := range i.fields {
		if f.Name() == name && f.FieldType() == ft {
			return true
		}
	}
	return false
}

// FieldByName looks up a field by name.
func (i Index) FieldByName(name string) (field.Field, bool) {
	for _, f := range i.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// StorageName is the name of the backend search index.
func (i Index) StorageName() string { return domain.KeyPrefix + "idx:" + i.name }

// RecordPrefix is the key prefix every record of the index is stored under.
func (i Index) RecordPrefix() string { return domain.KeyPrefix + i.name + ":" }

// RecordKey returns the storage key of a record.
func (i Index) RecordKey(id string) string { return i.RecordPrefix() + id }

// Stats is the live state of an index in the search backend.
type Stats struct {
	// Entries counts the records the backend has indexed.
	Entries int64
	// Indexing is set while records stored before the index existed are
	// still being scanned; facet counts are partial until it clears.
	Indexing bool
}

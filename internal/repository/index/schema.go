package index

import (
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/db"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
)

// buildIndex creates an FT index definition over the record hashes of idx.
// Tag fields are facets so values keep their display form; attribute names
// that are not query-safe are aliased.
func buildIndex(idx domidx.Index) (*db.IndexDefinition, error) {
	b := db.NewIndex(idx.StorageName()).Prefix(idx.RecordPrefix()).NoStopWords()

	for _, f := range idx.Fields() {
		switch f.FieldType() {
		case field.Tag:
			b.Facet(f.Name(), domidx.TagSeparator)
		case field.Numeric:
			b.Numeric(f.Name())
		case field.Text:
			b.Text(f.Name())
		default:
			return nil, fmt.Errorf("unknown field type: %s", f.FieldType())
		}
		if alias := db.FieldAlias(f.Name()); alias != f.Name() {
			b.As(alias)
		}
	}
	b.Facet(domidx.TagsAttribute, domidx.TagSeparator)

	return b.Build()
}

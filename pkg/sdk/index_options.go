package facetdex

// IndexOption configures index creation.
type IndexOption interface {
	applyIndex(*indexConfig)
}

type indexOptionFunc func(*indexConfig)

func (f indexOptionFunc) applyIndex(c *indexConfig) { f(c) }

type indexConfig struct {
	fields   []FieldInfo
	ordering *FacetOrdering
}

// WithField adds an attribute to the index schema.
func WithField(name string, ft FieldType) IndexOption {
	return indexOptionFunc(func(c *indexConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: ft})
	})
}

// WithFacetOrdering sets the facet ordering hints returned with every search.
func WithFacetOrdering(o *FacetOrdering) IndexOption {
	return indexOptionFunc(func(c *indexConfig) {
		c.ordering = o
	})
}

package response

import "encoding/json"

// Response is one raw backend answer to a query descriptor.
type Response struct {
	Hits             []json.RawMessage         `json:"hits"`
	NbHits           int                       `json:"nbHits"`
	Page             int                       `json:"page"`
	NbPages          int                       `json:"nbPages"`
	HitsPerPage      int                       `json:"hitsPerPage"`
	ProcessingTimeMS int                       `json:"processingTimeMS"`
	QueryID          string                    `json:"queryID,omitempty"`
	Facets           map[string]map[string]int `json:"facets,omitempty"`
	FacetsStats      map[string]Stats          `json:"facets_stats,omitempty"`
	// ExhaustiveFacetsCount is nil when the backend did not report it.
	ExhaustiveFacetsCount *bool             `json:"exhaustiveFacetsCount,omitempty"`
	RenderingContent      *RenderingContent `json:"renderingContent,omitempty"`
}

// Stats summarizes a numeric facet.
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	Sum float64 `json:"sum"`
}

// RenderingContent carries server-side display hints.
type RenderingContent struct {
	FacetOrdering *FacetOrdering `json:"facetOrdering,omitempty"`
}

// FacetOrdering declares the display order of facets and of their values.
type FacetOrdering struct {
	Facet *FacetsOrder `json:"facet,omitempty"`
	// Values is keyed by facet name, or by level attribute / "<facet>.lvl<N>"
	// for hierarchical levels.
	Values map[string]ValuesOrder `json:"values,omitempty"`
}

// FacetsOrder lists facet names in display order.
type FacetsOrder struct {
	Order []string `json:"order,omitempty"`
}

// ValuesOrder pins values first and sorts the rest by SortRemainingBy.
type ValuesOrder struct {
	Order           []string `json:"order,omitempty"`
	SortRemainingBy string   `json:"sortRemainingBy,omitempty"`
}

// Exhaustive reports the facet count exhaustiveness; missing counts as true.
func (r *Response) Exhaustive() bool {
	return r.ExhaustiveFacetsCount == nil || *r.ExhaustiveFacetsCount
}

// FacetValues returns the raw counts of an attribute and whether the
// response carried them at all.
func (r *Response) FacetValues(attr string) (map[string]int, bool) {
	v, ok := r.Facets[attr]
	return v, ok
}

// Ordering returns the facet ordering hints, or nil.
func (r *Response) Ordering() *FacetOrdering {
	if r.RenderingContent == nil {
		return nil
	}
	return r.RenderingContent.FacetOrdering
}

// ValuesOrder returns the value ordering hint for key.
func (o *FacetOrdering) ValuesOrder(key string) (ValuesOrder, bool) {
	if o == nil {
		return ValuesOrder{}, false
	}
	v, ok := o.Values[key]
	return v, ok
}

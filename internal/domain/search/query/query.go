package query

import (
	"strconv"
	"strings"
)

// Operator is a numeric comparison operator.
type Operator string

// Numeric operators.
const (
	OpEQ  Operator = "="
	OpNEQ Operator = "!="
	OpGT  Operator = ">"
	OpGTE Operator = ">="
	OpLT  Operator = "<"
	OpLTE Operator = "<="
)

// IsValid checks if the operator is one of the supported values.
func (o Operator) IsValid() bool {
	switch o {
	case OpEQ, OpNEQ, OpGT, OpGTE, OpLT, OpLTE:
		return true
	}
	return false
}

// Filter is a single facet filter clause.
type Filter struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Negated   bool   `json:"negated,omitempty"`
}

// String renders the filter as "attr:value" ("-attr:value" when negated).
func (f Filter) String() string {
	s := f.Attribute + ":" + EscapeValue(f.Value)
	if f.Negated {
		return "-" + s
	}
	return s
}

// FilterGroup is a set of filters combined with OR.
type FilterGroup []Filter

// NumericFilter is a numeric comparison on an attribute.
type NumericFilter struct {
	Attribute string   `json:"attribute"`
	Operator  Operator `json:"operator"`
	Value     float64  `json:"value"`
}

// String renders the filter as "attr>=10".
func (n NumericFilter) String() string {
	return n.Attribute + string(n.Operator) + strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Descriptor is one concrete backend query derived from a search state.
// FacetFilters are ANDed; filters inside a group are ORed.
type Descriptor struct {
	Index             string          `json:"index"`
	Query             string          `json:"query"`
	Page              int             `json:"page"`
	HitsPerPage       int             `json:"hitsPerPage"`
	Facets            []string        `json:"facets,omitempty"`
	FacetFilters      []FilterGroup   `json:"facetFilters,omitempty"`
	NumericFilters    []NumericFilter `json:"numericFilters,omitempty"`
	TagFilters        []string        `json:"tagFilters,omitempty"`
	MaxValuesPerFacet int             `json:"maxValuesPerFacet,omitempty"`
	ClickAnalytics    bool            `json:"clickAnalytics,omitempty"`
	Analytics         bool            `json:"analytics"`
	// Fanout marks facet-count queries that need no hits.
	Fanout bool `json:"fanout,omitempty"`
}

// Params renders the descriptor in the backend parameter vocabulary.
func (d Descriptor) Params() map[string]any {
	p := map[string]any{
		"query":       d.Query,
		"page":        d.Page,
		"hitsPerPage": d.HitsPerPage,
	}
	if len(d.Facets) > 0 {
		p["facets"] = append([]string(nil), d.Facets...)
	}
	if len(d.FacetFilters) > 0 {
		groups := make([][]string, 0, len(d.FacetFilters))
		for _, g := range d.FacetFilters {
			rendered := make([]string, 0, len(g))
			for _, f := range g {
				rendered = append(rendered, f.String())
			}
			groups = append(groups, rendered)
		}
		p["facetFilters"] = groups
	}
	if len(d.NumericFilters) > 0 {
		nf := make([]string, 0, len(d.NumericFilters))
		for _, n := range d.NumericFilters {
			nf = append(nf, n.String())
		}
		p["numericFilters"] = nf
	}
	if len(d.TagFilters) > 0 {
		p["tagFilters"] = append([]string(nil), d.TagFilters...)
	}
	if d.MaxValuesPerFacet > 0 {
		p["maxValuesPerFacet"] = d.MaxValuesPerFacet
	}
	if d.ClickAnalytics {
		p["clickAnalytics"] = true
	}
	if !d.Analytics {
		p["analytics"] = false
	}
	if d.Fanout {
		p["attributesToRetrieve"] = []string{}
	}
	return p
}

// EscapeValue protects a facet value whose leading "-" would read as negation.
func EscapeValue(v string) string {
	if strings.HasPrefix(v, "-") {
		return `\` + v
	}
	return v
}

// UnescapeValue reverses EscapeValue.
func UnescapeValue(v string) string {
	if strings.HasPrefix(v, `\-`) {
		return v[1:]
	}
	return v
}

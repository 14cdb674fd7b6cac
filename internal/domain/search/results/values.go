package results

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Value is one value of a flat facet.
type Value struct {
	Name string `json:"name"`
	// EscapedValue is Name as it must be written in a refinement or filter.
	EscapedValue string `json:"escapedValue"`
	Count        int    `json:"count"`
	IsRefined    bool   `json:"isRefined"`
	IsExcluded   bool   `json:"isExcluded,omitempty"`
}

// HierarchicalValue is a node of a hierarchical facet tree. The root
// wrapper carries neither a path nor a count.
type HierarchicalValue struct {
	Name         string              `json:"name"`
	Path         *string             `json:"path"`
	EscapedValue *string             `json:"escapedValue"`
	Count        *int                `json:"count"`
	IsRefined    bool                `json:"isRefined"`
	Exhaustive   bool                `json:"exhaustive"`
	Data         []HierarchicalValue `json:"data"`
}

// Resolve returns []Value for flat facets and HierarchicalValue for
// hierarchical ones. Undeclared names resolve to an empty list.
func (r *Results) Resolve(name string, opts FacetOptions) (any, error) {
	if kind, ok := r.state.Kind(name); ok && kind == facet.Hierarchical {
		return r.HierarchicalValues(name, opts)
	}
	return r.FacetValues(name, opts)
}

// FacetValues returns the ordered values of a conjunctive or disjunctive facet.
func (r *Results) FacetValues(name string, opts FacetOptions) ([]Value, error) {
	kind, ok := r.state.Kind(name)
	if !ok {
		return []Value{}, nil
	}
	if kind == facet.Hierarchical {
		return nil, domain.NewConfigurationError(name, "hierarchical facet has no flat values")
	}
	custom, err := opts.comparator(name)
	if err != nil {
		return nil, err
	}

	c := r.flat[name]
	entries := make([]entry, 0, len(c.values))
	for v, n := range c.values {
		entries = append(entries, entry{
			Value: Value{
				Name:         v,
				EscapedValue: query.EscapeValue(v),
				Count:        n,
				IsRefined:    r.state.IsRefined(name, v),
				IsExcluded:   r.state.IsExcluded(name, v),
			},
			key: v,
		})
	}

	hint, hasHint := r.ordering.ValuesOrder(name)
	ordered := opts.plan(custom, hint, hasHint).order(entries)

	out := make([]Value, len(ordered))
	for i, e := range ordered {
		out[i] = e.Value
	}
	return out, nil
}

// HierarchicalValues returns the tree of a hierarchical facet. Only the
// nodes on the refined path (or the root path) are expanded.
func (r *Results) HierarchicalValues(name string, opts FacetOptions) (HierarchicalValue, error) {
	kind, ok := r.state.Kind(name)
	if !ok {
		return HierarchicalValue{Name: name, Exhaustive: true}, nil
	}
	if kind != facet.Hierarchical {
		return HierarchicalValue{}, domain.NewConfigurationError(name, "%s facet is not hierarchical", kind)
	}
	custom, err := opts.comparator(name)
	if err != nil {
		return HierarchicalValue{}, err
	}

	h, _ := r.state.Hierarchy(name)
	levels := r.levels[name]
	t := buildTree(h, levels, r.state.HierarchicalRefinement(name))

	return HierarchicalValue{
		Name:       name,
		IsRefined:  r.state.HasRefinements(name),
		Exhaustive: allExhaustive(levels),
		Data:       r.resolveLevel(h, &t, levels, t.roots, 0, opts, custom),
	}, nil
}

func (r *Results) resolveLevel(
	h facet.Hierarchy, t *tree, levels []counts, ids []int, level int, opts FacetOptions, custom comparator,
) []HierarchicalValue {
	if len(ids) == 0 {
		return nil
	}

	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		n := t.nodes[id]
		entries = append(entries, entry{
			Value: Value{
				Name:      h.LastSegment(n.path),
				Count:     n.count,
				IsRefined: r.state.IsRefined(h.Name(), n.path),
			},
			key: n.path,
			idx: id,
		})
	}

	hint, hasHint := r.levelHint(h, level)
	ordered := opts.plan(custom, hint, hasHint).order(entries)
	if len(ordered) == 0 {
		return nil
	}

	out := make([]HierarchicalValue, 0, len(ordered))
	for _, e := range ordered {
		n := t.nodes[e.idx]
		path, escaped, count := n.path, query.EscapeValue(n.path), n.count
		out = append(out, HierarchicalValue{
			Name:         e.Name,
			Path:         &path,
			EscapedValue: &escaped,
			Count:        &count,
			IsRefined:    e.IsRefined,
			Exhaustive:   levels[level].exhaustive,
			Data:         r.resolveLevel(h, t, levels, n.children, level+1, opts, custom),
		})
	}
	return out
}

// levelHint looks the hint up by level attribute, then by "<facet>.lvl<N>".
func (r *Results) levelHint(h facet.Hierarchy, level int) (hint response.ValuesOrder, ok bool) {
	if hint, ok = r.ordering.ValuesOrder(h.Attribute(level)); ok {
		return hint, true
	}
	return r.ordering.ValuesOrder(h.LevelKey(level))
}

// Refinement is one active refinement, as listed by breadcrumb UIs.
type Refinement struct {
	Type       string         `json:"type"`
	Attribute  string         `json:"attributeName"`
	Name       string         `json:"name"`
	Operator   query.Operator `json:"operator,omitempty"`
	Numeric    *float64       `json:"numericValue,omitempty"`
	Count      int            `json:"count"`
	Exhaustive bool           `json:"exhaustive"`
}

// Refinement types.
const (
	RefinementFacet        = "facet"
	RefinementExclude      = "exclude"
	RefinementDisjunctive  = "disjunctive"
	RefinementHierarchical = "hierarchical"
	RefinementNumeric      = "numeric"
	RefinementTag          = "tag"
)

// Refinements lists every active refinement with its current count.
func (r *Results) Refinements() []Refinement {
	var out []Refinement
	add := func(typ string, kind facet.Kind, name, value string) {
		n, exhaustive := r.count(kind, name, value)
		out = append(out, Refinement{Type: typ, Attribute: name, Name: value, Count: n, Exhaustive: exhaustive})
	}

	for _, name := range r.state.Facets() {
		for _, v := range r.state.Refinements(name) {
			add(RefinementFacet, facet.Conjunctive, name, v)
		}
		for _, v := range r.state.Exclusions(name) {
			add(RefinementExclude, facet.Conjunctive, name, v)
		}
	}
	for _, name := range r.state.DisjunctiveFacets() {
		for _, v := range r.state.Refinements(name) {
			add(RefinementDisjunctive, facet.Disjunctive, name, v)
		}
	}
	for _, h := range r.state.HierarchicalFacets() {
		if p := r.state.HierarchicalRefinement(h.Name()); p != "" {
			add(RefinementHierarchical, facet.Hierarchical, h.Name(), p)
		}
	}

	numeric := r.state.Params().NumericRefinements
	for _, attr := range slices.Sorted(maps.Keys(numeric)) {
		ops := numeric[attr]
		for _, op := range slices.Sorted(maps.Keys(ops)) {
			for _, v := range ops[op] {
				out = append(out, Refinement{
					Type:       RefinementNumeric,
					Attribute:  attr,
					Name:       query.NumericFilter{Attribute: attr, Operator: op, Value: v}.String(),
					Operator:   op,
					Numeric:    &v,
					Exhaustive: true,
				})
			}
		}
	}
	for _, tag := range r.state.TagRefinements() {
		out = append(out, Refinement{Type: RefinementTag, Attribute: "_tags", Name: tag, Exhaustive: true})
	}
	return out
}

package state

import (
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// Queries derives the backend query descriptors of one search round:
// the main query, then one per disjunctive facet, then one per hierarchical
// facet, in declaration order. The count is always 1 + d + h.
func (s State) Queries() []query.Descriptor {
	out := make([]query.Descriptor, 0, 1+len(s.disjunctive)+len(s.hierarchies))
	out = append(out, s.mainQuery())
	for _, name := range s.disjunctive {
		out = append(out, s.disjunctiveQuery(name))
	}
	for _, h := range s.hierarchies {
		out = append(out, s.hierarchicalQuery(h))
	}
	return out
}

func (s State) mainQuery() query.Descriptor {
	facets := slices.Clone(s.conjunctive)
	facets = append(facets, s.disjunctive...)
	for _, h := range s.hierarchies {
		facets = append(facets, s.hierarchyAttributes(h)...)
	}

	return query.Descriptor{
		Index:             s.index,
		Query:             s.query,
		Page:              s.page,
		HitsPerPage:       s.hitsPerPage,
		Facets:            facets,
		FacetFilters:      s.facetFilters("", ""),
		NumericFilters:    s.numericFilters(),
		TagFilters:        slices.Clone(s.tags),
		MaxValuesPerFacet: s.maxValues,
		ClickAnalytics:    s.clickAnalytics,
		Analytics:         true,
	}
}

// disjunctiveQuery counts the values of one disjunctive facet as if its own
// refinement were lifted.
func (s State) disjunctiveQuery(name string) query.Descriptor {
	return query.Descriptor{
		Index:             s.index,
		Query:             s.query,
		Facets:            []string{name},
		FacetFilters:      s.facetFilters(name, ""),
		NumericFilters:    s.numericFilters(),
		TagFilters:        slices.Clone(s.tags),
		MaxValuesPerFacet: s.maxValues,
		Fanout:            true,
	}
}

// hierarchicalQuery drops the hierarchy's own path refinement and scopes the
// counts to its root path instead.
func (s State) hierarchicalQuery(h facet.Hierarchy) query.Descriptor {
	filters := s.facetFilters("", h.Name())
	if root := h.RootPath(); root != "" {
		filters = append(filters, query.FilterGroup{{
			Attribute: h.Attribute(h.Depth(root) - 1),
			Value:     root,
		}})
	}
	return query.Descriptor{
		Index:             s.index,
		Query:             s.query,
		Facets:            s.hierarchyAttributes(h),
		FacetFilters:      filters,
		NumericFilters:    s.numericFilters(),
		TagFilters:        slices.Clone(s.tags),
		MaxValuesPerFacet: s.maxValues,
		Fanout:            true,
	}
}

// hierarchyAttributes lists the level attributes needed to build the tree
// down to the children of the refined (or root) path.
func (s State) hierarchyAttributes(h facet.Hierarchy) []string {
	path := s.hierarchical[h.Name()]
	if path == "" {
		path = h.RootPath()
	}
	last := min(h.Depth(path), h.Levels()-1)
	attrs := h.Attributes()
	return attrs[:last+1]
}

// facetFilters renders refinements as AND-ed OR-groups, skipping the
// disjunctive facet skipDisj and the hierarchical facet skipHier.
func (s State) facetFilters(skipDisj, skipHier string) []query.FilterGroup {
	var groups []query.FilterGroup
	for _, name := range s.conjunctive {
		for _, v := range s.refinements[name] {
			groups = append(groups, query.FilterGroup{{Attribute: name, Value: v}})
		}
		for _, v := range s.exclusions[name] {
			groups = append(groups, query.FilterGroup{{Attribute: name, Value: v, Negated: true}})
		}
	}
	for _, name := range s.disjunctive {
		if name == skipDisj || len(s.disjunctiveRef[name]) == 0 {
			continue
		}
		g := make(query.FilterGroup, 0, len(s.disjunctiveRef[name]))
		for _, v := range s.disjunctiveRef[name] {
			g = append(g, query.Filter{Attribute: name, Value: v})
		}
		groups = append(groups, g)
	}
	for _, h := range s.hierarchies {
		path := s.hierarchical[h.Name()]
		if h.Name() == skipHier || path == "" {
			continue
		}
		groups = append(groups, query.FilterGroup{{
			Attribute: h.Attribute(h.Depth(path) - 1),
			Value:     path,
		}})
	}
	return groups
}

func (s State) numericFilters() []query.NumericFilter {
	var out []query.NumericFilter
	for _, attr := range sortedKeys(s.numeric) {
		for _, op := range operatorOrder {
			for _, v := range s.numeric[attr][op] {
				out = append(out, query.NumericFilter{Attribute: attr, Operator: op, Value: v})
			}
		}
	}
	return out
}

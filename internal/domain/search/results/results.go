// Package results merges the raw responses of one search round into a
// Results aggregate and resolves facet values from it.
package results

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

// counts is the value→count data of one facet attribute.
type counts struct {
	values     map[string]int
	exhaustive bool
}

// Results is the immutable aggregate of one search round.
type Results struct {
	state            state.State
	hits             []json.RawMessage
	nbHits           int
	page             int
	nbPages          int
	hitsPerPage      int
	processingTimeMS int
	queryID          string
	ordering         *response.FacetOrdering
	flat             map[string]counts
	levels           map[string][]counts
	stats            map[string]response.Stats
}

// Merge builds the aggregate from the responses to st.Queries(), in the same order.
func Merge(st state.State, responses []response.Response) (*Results, error) {
	disjunctive := st.DisjunctiveFacets()
	hierarchies := st.HierarchicalFacets()
	want := 1 + len(disjunctive) + len(hierarchies)
	if len(responses) != want {
		return nil, fmt.Errorf("merge %d responses, expected %d: %w", len(responses), want, domain.ErrResponseCount)
	}

	main := &responses[0]
	r := &Results{
		state:            st,
		hits:             slices.Clone(main.Hits),
		nbHits:           main.NbHits,
		page:             main.Page,
		nbPages:          main.NbPages,
		hitsPerPage:      main.HitsPerPage,
		processingTimeMS: main.ProcessingTimeMS,
		ordering:         main.Ordering(),
		flat:             make(map[string]counts),
		levels:           make(map[string][]counts, len(hierarchies)),
		stats:            maps.Clone(main.FacetsStats),
	}
	if st.ClickAnalytics() {
		r.queryID = main.QueryID
	}
	if r.stats == nil {
		r.stats = make(map[string]response.Stats)
	}

	for _, name := range st.Facets() {
		c, ok := pick(main, nil, true, name)
		if ok {
			c.values = withZeroCounts(c.values, st.Exclusions(name))
		}
		r.flat[name] = c
	}

	for i, name := range disjunctive {
		fan := &responses[1+i]
		c, ok := pick(main, fan, !st.HasRefinements(name), name)
		if ok {
			c.values = withZeroCounts(c.values, st.Refinements(name))
		}
		r.flat[name] = c
		if s, ok := fan.FacetsStats[name]; ok {
			r.stats[name] = s
		}
	}

	for j, h := range hierarchies {
		fan := &responses[1+len(disjunctive)+j]
		refined := st.HierarchicalRefinement(h.Name())
		levels := make([]counts, h.Levels())
		for level, attr := range h.Attributes() {
			if refined == "" {
				levels[level], _ = pick(main, fan, h.RootPath() == "", attr)
				continue
			}
			levels[level] = underlay(fan, main, attr)
		}
		if refined != "" {
			withRefinedChain(h, levels, refined)
		}
		r.levels[h.Name()] = levels
	}

	return r, nil
}

// pick returns the counts of attr, from main when allowed and present,
// otherwise from the fan-out response. Missing data yields empty counts.
func pick(main, fan *response.Response, useMain bool, attr string) (counts, bool) {
	if useMain {
		if v, ok := main.FacetValues(attr); ok {
			return counts{values: maps.Clone(v), exhaustive: main.Exhaustive()}, true
		}
	}
	if fan != nil {
		if v, ok := fan.FacetValues(attr); ok {
			return counts{values: maps.Clone(v), exhaustive: fan.Exhaustive()}, true
		}
	}
	return counts{exhaustive: true}, false
}

// underlay returns the fan-out counts of attr completed by the values only
// the main response saw. The fan-out query keeps the top values of the whole
// level, so the refined branch may be cut from it; the main response is
// scoped to that branch.
func underlay(fan, main *response.Response, attr string) counts {
	c := counts{exhaustive: true}
	if v, ok := fan.FacetValues(attr); ok {
		c.values = maps.Clone(v)
		c.exhaustive = fan.Exhaustive()
	}
	v, ok := main.FacetValues(attr)
	if !ok {
		return c
	}
	for value, n := range v {
		if _, seen := c.values[value]; seen {
			continue
		}
		if c.values == nil {
			c.values = make(map[string]int, len(v))
		}
		c.values[value] = n
	}
	c.exhaustive = c.exhaustive && main.Exhaustive()
	return c
}

// withRefinedChain lists the refined path and each of its ancestors at
// their level, so the tree always reaches the refinement.
func withRefinedChain(h facet.Hierarchy, levels []counts, refined string) {
	for p := refined; p != ""; p = h.Parent(p) {
		level := h.Depth(p) - 1
		if level < 0 || level >= len(levels) {
			continue
		}
		levels[level].values = withZeroCounts(levels[level].values, []string{p})
	}
}

// withZeroCounts makes sure every selected value is listed, even when the
// backend returned no count for it.
func withZeroCounts(values map[string]int, selected []string) map[string]int {
	for _, v := range selected {
		if _, ok := values[v]; !ok {
			if values == nil {
				values = make(map[string]int)
			}
			values[v] = 0
		}
	}
	return values
}

// State returns the query state the results were produced for.
func (r *Results) State() state.State { return r.state }

// Hits returns the hits of the main query.
func (r *Results) Hits() []json.RawMessage { return slices.Clone(r.hits) }

// NbHits returns the total number of matching records.
func (r *Results) NbHits() int { return r.nbHits }

// Page returns the current page.
func (r *Results) Page() int { return r.page }

// NbPages returns the number of pages.
func (r *Results) NbPages() int { return r.nbPages }

// HitsPerPage returns the page size.
func (r *Results) HitsPerPage() int { return r.hitsPerPage }

// ProcessingTimeMS returns the backend processing time of the main query.
func (r *Results) ProcessingTimeMS() int { return r.processingTimeMS }

// QueryID returns the query identifier, set only with click analytics.
func (r *Results) QueryID() string { return r.queryID }

// Stats returns the numeric stats of a facet.
func (r *Results) Stats(attr string) (response.Stats, bool) {
	s, ok := r.stats[attr]
	return s, ok
}

// Exhaustive reports whether the counts of a facet are exact. For a
// hierarchical facet every level must be exact.
func (r *Results) Exhaustive(name string) bool {
	if levels, ok := r.levels[name]; ok {
		return allExhaustive(levels)
	}
	if c, ok := r.flat[name]; ok {
		return c.exhaustive
	}
	return true
}

func allExhaustive(levels []counts) bool {
	for _, l := range levels {
		if !l.exhaustive {
			return false
		}
	}
	return true
}

// FacetOrder returns the declared facets in the order hinted by the server.
// Facets the hint does not list follow in declaration order.
func (r *Results) FacetOrder() []string {
	declared := r.state.Facets()
	declared = append(declared, r.state.DisjunctiveFacets()...)
	for _, h := range r.state.HierarchicalFacets() {
		declared = append(declared, h.Name())
	}

	var hinted []string
	if r.ordering != nil && r.ordering.Facet != nil {
		hinted = r.ordering.Facet.Order
	}

	seen := make(map[string]bool, len(declared))
	out := make([]string, 0, len(declared))
	for _, n := range hinted {
		name := r.facetOf(n)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range declared {
		if !seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// facetOf maps a facet or level attribute name to its declared facet name.
func (r *Results) facetOf(n string) string {
	if _, ok := r.state.Kind(n); ok {
		return n
	}
	for _, h := range r.state.HierarchicalFacets() {
		if h.Level(n) >= 0 {
			return h.Name()
		}
	}
	return ""
}

func (r *Results) count(kind facet.Kind, name, value string) (int, bool) {
	if kind != facet.Hierarchical {
		c := r.flat[name]
		return c.values[value], c.exhaustive
	}
	h, _ := r.state.Hierarchy(name)
	levels := r.levels[name]
	level := h.Depth(value) - 1
	if level < 0 || level >= len(levels) {
		return 0, true
	}
	return levels[level].values[value], levels[level].exhaustive
}

package state

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// Pagination limits.
const (
	DefaultHitsPerPage = 20
	MaxHitsPerPage     = 1000
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength = 512
)

// Params is the plain, mutable description of a state. New validates it.
type Params struct {
	Index                   string
	Query                   string
	Facets                  []string
	DisjunctiveFacets       []string
	HierarchicalFacets      []facet.Hierarchy
	FacetRefinements        map[string][]string
	FacetExclusions         map[string][]string
	DisjunctiveRefinements  map[string][]string
	HierarchicalRefinements map[string]string
	NumericRefinements      map[string]map[query.Operator][]float64
	TagRefinements          []string
	Page                    int
	HitsPerPage             int
	MaxValuesPerFacet       int
	ClickAnalytics          bool
}

// State is an immutable search request with its refinements.
// Every operation returns a new State; maps and slices held by a State are
// never written after construction, so copies may share them.
type State struct {
	index          string
	query          string
	conjunctive    []string
	disjunctive    []string
	hierarchies    []facet.Hierarchy
	kinds          map[string]facet.Kind
	levelOwner     map[string]string
	refinements    map[string][]string
	exclusions     map[string][]string
	disjunctiveRef map[string][]string
	hierarchical   map[string]string
	numeric        map[string]map[query.Operator][]float64
	tags           []string
	page           int
	hitsPerPage    int
	maxValues      int
	clickAnalytics bool
}

// New validates params and builds a State.
// Defaults: hitsPerPage=20. Every facet name is classified exactly once.
func New(p Params) (State, error) {
	if len(p.Query) > MaxQueryLength {
		return State{}, domain.NewConfigurationError("", "query too long (max %d chars)", MaxQueryLength)
	}
	if p.Page < 0 {
		return State{}, domain.NewConfigurationError("", "page must be >= 0, got %d", p.Page)
	}
	if p.HitsPerPage < 0 || p.HitsPerPage > MaxHitsPerPage {
		return State{}, domain.NewConfigurationError("", "hitsPerPage must be between 0 and %d", MaxHitsPerPage)
	}
	if p.HitsPerPage == 0 {
		p.HitsPerPage = DefaultHitsPerPage
	}
	if p.MaxValuesPerFacet < 0 {
		return State{}, domain.NewConfigurationError("", "maxValuesPerFacet must be >= 0")
	}

	s := State{
		index:          p.Index,
		query:          p.Query,
		conjunctive:    slices.Clone(p.Facets),
		disjunctive:    slices.Clone(p.DisjunctiveFacets),
		hierarchies:    slices.Clone(p.HierarchicalFacets),
		kinds:          make(map[string]facet.Kind),
		levelOwner:     make(map[string]string),
		refinements:    map[string][]string{},
		exclusions:     map[string][]string{},
		disjunctiveRef: map[string][]string{},
		hierarchical:   map[string]string{},
		numeric:        map[string]map[query.Operator][]float64{},
		page:           p.Page,
		hitsPerPage:    p.HitsPerPage,
		maxValues:      p.MaxValuesPerFacet,
		clickAnalytics: p.ClickAnalytics,
	}

	if err := s.classify(); err != nil {
		return State{}, err
	}

	var err error
	for _, name := range sortedKeys(p.FacetRefinements) {
		for _, v := range p.FacetRefinements[name] {
			if s, err = s.Add(facet.Conjunctive, name, v); err != nil {
				return State{}, err
			}
		}
	}
	for _, name := range sortedKeys(p.FacetExclusions) {
		for _, v := range p.FacetExclusions[name] {
			if s, err = s.Exclude(name, v); err != nil {
				return State{}, err
			}
		}
	}
	for _, name := range sortedKeys(p.DisjunctiveRefinements) {
		for _, v := range p.DisjunctiveRefinements[name] {
			if s, err = s.Add(facet.Disjunctive, name, v); err != nil {
				return State{}, err
			}
		}
	}
	for _, name := range sortedKeys(p.HierarchicalRefinements) {
		if p.HierarchicalRefinements[name] == "" {
			continue
		}
		if s, err = s.Add(facet.Hierarchical, name, p.HierarchicalRefinements[name]); err != nil {
			return State{}, err
		}
	}
	for _, attr := range sortedKeys(p.NumericRefinements) {
		for op := range p.NumericRefinements[attr] {
			if !op.IsValid() {
				return State{}, domain.NewConfigurationError(attr, "invalid numeric operator %q", op)
			}
		}
		for _, op := range operatorOrder {
			for _, v := range p.NumericRefinements[attr][op] {
				if s, err = s.AddNumericRefinement(attr, op, v); err != nil {
					return State{}, err
				}
			}
		}
	}
	for _, tag := range p.TagRefinements {
		if s, err = s.AddTagRefinement(tag); err != nil {
			return State{}, err
		}
	}

	return s, nil
}

// classify builds the name -> kind index and enforces single classification.
func (s *State) classify() error {
	declare := func(name string, k facet.Kind) error {
		if name == "" {
			return domain.NewConfigurationError("", "empty %s facet name", k)
		}
		if prev, ok := s.kinds[name]; ok {
			return domain.NewConfigurationError(name, "declared as both %s and %s", prev, k)
		}
		s.kinds[name] = k
		return nil
	}

	for _, name := range s.conjunctive {
		if err := declare(name, facet.Conjunctive); err != nil {
			return err
		}
	}
	for _, name := range s.disjunctive {
		if err := declare(name, facet.Disjunctive); err != nil {
			return err
		}
	}
	for _, h := range s.hierarchies {
		if err := declare(h.Name(), facet.Hierarchical); err != nil {
			return err
		}
	}
	for _, h := range s.hierarchies {
		for _, attr := range h.Attributes() {
			if attr == h.Name() {
				continue
			}
			if k, ok := s.kinds[attr]; ok {
				return domain.NewConfigurationError(attr, "declared as %s and used as a level of %q", k, h.Name())
			}
			if owner, ok := s.levelOwner[attr]; ok {
				return domain.NewConfigurationError(attr, "shared by hierarchical facets %q and %q", owner, h.Name())
			}
			s.levelOwner[attr] = h.Name()
		}
	}
	return nil
}

// Params returns a deep copy of the state as plain params.
func (s State) Params() Params {
	p := Params{
		Index:              s.index,
		Query:              s.query,
		Facets:             slices.Clone(s.conjunctive),
		DisjunctiveFacets:  slices.Clone(s.disjunctive),
		HierarchicalFacets: slices.Clone(s.hierarchies),
		TagRefinements:     slices.Clone(s.tags),
		Page:               s.page,
		HitsPerPage:        s.hitsPerPage,
		MaxValuesPerFacet:  s.maxValues,
		ClickAnalytics:     s.clickAnalytics,
	}
	if len(s.refinements) > 0 {
		p.FacetRefinements = cloneSets(s.refinements)
	}
	if len(s.exclusions) > 0 {
		p.FacetExclusions = cloneSets(s.exclusions)
	}
	if len(s.disjunctiveRef) > 0 {
		p.DisjunctiveRefinements = cloneSets(s.disjunctiveRef)
	}
	if len(s.hierarchical) > 0 {
		p.HierarchicalRefinements = maps.Clone(s.hierarchical)
	}
	if len(s.numeric) > 0 {
		p.NumericRefinements = make(map[string]map[query.Operator][]float64, len(s.numeric))
		for attr, ops := range s.numeric {
			cp := make(map[query.Operator][]float64, len(ops))
			for op, vals := range ops {
				cp[op] = slices.Clone(vals)
			}
			p.NumericRefinements[attr] = cp
		}
	}
	return p
}

// Index returns the target index name.
func (s State) Index() string { return s.index }

// Query returns the free-text query.
func (s State) Query() string { return s.query }

// Page returns the zero-based page index.
func (s State) Page() int { return s.page }

// HitsPerPage returns the page size.
func (s State) HitsPerPage() int { return s.hitsPerPage }

// MaxValuesPerFacet returns the per-facet value limit (0 = backend default).
func (s State) MaxValuesPerFacet() int { return s.maxValues }

// ClickAnalytics reports whether the backend should issue a query identifier.
func (s State) ClickAnalytics() bool { return s.clickAnalytics }

// Facets returns the conjunctive facet names in declaration order.
func (s State) Facets() []string { return slices.Clone(s.conjunctive) }

// DisjunctiveFacets returns the disjunctive facet names in declaration order.
func (s State) DisjunctiveFacets() []string { return slices.Clone(s.disjunctive) }

// HierarchicalFacets returns the hierarchical facets in declaration order.
func (s State) HierarchicalFacets() []facet.Hierarchy { return slices.Clone(s.hierarchies) }

// Kind returns the classification of a facet name.
func (s State) Kind(name string) (facet.Kind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

// Hierarchy returns the hierarchical facet with the given name.
func (s State) Hierarchy(name string) (facet.Hierarchy, bool) {
	for _, h := range s.hierarchies {
		if h.Name() == name {
			return h, true
		}
	}
	return facet.Hierarchy{}, false
}

// IsRefined reports whether value is refined on the facet. For hierarchical
// facets value matches the refined path or any of its ancestors.
func (s State) IsRefined(name, value string) bool {
	switch s.kinds[name] {
	case facet.Conjunctive:
		return slices.Contains(s.refinements[name], value)
	case facet.Disjunctive:
		return slices.Contains(s.disjunctiveRef[name], value)
	case facet.Hierarchical:
		h, _ := s.Hierarchy(name)
		return h.IsAncestorOrSelf(value, s.hierarchical[name])
	}
	return false
}

// IsExcluded reports whether value is excluded on a conjunctive facet.
func (s State) IsExcluded(name, value string) bool {
	return slices.Contains(s.exclusions[name], value)
}

// HasRefinements reports whether any value is refined on the facet.
func (s State) HasRefinements(name string) bool {
	switch s.kinds[name] {
	case facet.Conjunctive:
		return len(s.refinements[name]) > 0
	case facet.Disjunctive:
		return len(s.disjunctiveRef[name]) > 0
	case facet.Hierarchical:
		return s.hierarchical[name] != ""
	}
	return false
}

// Refinements returns the refined values of a facet. A hierarchical facet
// yields its single refined path.
func (s State) Refinements(name string) []string {
	switch s.kinds[name] {
	case facet.Conjunctive:
		return slices.Clone(s.refinements[name])
	case facet.Disjunctive:
		return slices.Clone(s.disjunctiveRef[name])
	case facet.Hierarchical:
		if p := s.hierarchical[name]; p != "" {
			return []string{p}
		}
	}
	return nil
}

// Exclusions returns the excluded values of a conjunctive facet.
func (s State) Exclusions(name string) []string { return slices.Clone(s.exclusions[name]) }

// HierarchicalRefinement returns the refined path of a hierarchical facet.
func (s State) HierarchicalRefinement(name string) string { return s.hierarchical[name] }

// NumericRefinements returns the numeric refinements of an attribute.
func (s State) NumericRefinements(attr string) map[query.Operator][]float64 {
	ops := s.numeric[attr]
	if len(ops) == 0 {
		return nil
	}
	cp := make(map[query.Operator][]float64, len(ops))
	for op, vals := range ops {
		cp[op] = slices.Clone(vals)
	}
	return cp
}

// TagRefinements returns the refined tags.
func (s State) TagRefinements() []string { return slices.Clone(s.tags) }

// Equal compares two states. Refined values compare as sets.
func (s State) Equal(o State) bool {
	if s.index != o.index || s.query != o.query || s.page != o.page ||
		s.hitsPerPage != o.hitsPerPage || s.maxValues != o.maxValues ||
		s.clickAnalytics != o.clickAnalytics {
		return false
	}
	if !slices.Equal(s.conjunctive, o.conjunctive) || !slices.Equal(s.disjunctive, o.disjunctive) {
		return false
	}
	if !slices.EqualFunc(s.hierarchies, o.hierarchies, facet.Hierarchy.Equal) {
		return false
	}
	if !equalSets(s.refinements, o.refinements) || !equalSets(s.exclusions, o.exclusions) ||
		!equalSets(s.disjunctiveRef, o.disjunctiveRef) {
		return false
	}
	if !maps.Equal(s.hierarchical, o.hierarchical) {
		return false
	}
	if !sameMembers(s.tags, o.tags) {
		return false
	}
	if len(s.numeric) != len(o.numeric) {
		return false
	}
	for attr, ops := range s.numeric {
		other, ok := o.numeric[attr]
		if !ok || len(ops) != len(other) {
			return false
		}
		for op, vals := range ops {
			if !sameMembers(vals, other[op]) {
				return false
			}
		}
	}
	return true
}

func equalSets(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !sameMembers(av, bv) {
			return false
		}
	}
	return true
}

func sameMembers[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}

func cloneSets(m map[string][]string) map[string][]string {
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		cp[k] = slices.Clone(v)
	}
	return cp
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

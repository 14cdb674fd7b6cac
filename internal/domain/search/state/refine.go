package state

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// operatorOrder fixes the rendering order of numeric refinements.
var operatorOrder = []query.Operator{
	query.OpEQ, query.OpNEQ, query.OpGT, query.OpGTE, query.OpLT, query.OpLTE,
}

// check verifies that name is declared with the requested kind.
func (s State) check(kind facet.Kind, name string) error {
	if !kind.IsValid() {
		return domain.NewConfigurationError(name, "invalid facet classification %q", kind)
	}
	declared, ok := s.kinds[name]
	if !ok {
		return domain.NewConfigurationError(name, "not declared as a facet")
	}
	if declared != kind {
		return domain.NewConfigurationError(name, "declared as %s, not %s", declared, kind)
	}
	return nil
}

// Add refines value on the facet. For a hierarchical facet value is a full
// path and replaces the current one, which clears every deeper level.
func (s State) Add(kind facet.Kind, name, value string) (State, error) {
	if err := s.check(kind, name); err != nil {
		return State{}, err
	}
	switch kind {
	case facet.Conjunctive:
		s.refinements = withValue(s.refinements, name, value)
	case facet.Disjunctive:
		s.disjunctiveRef = withValue(s.disjunctiveRef, name, value)
	case facet.Hierarchical:
		h, _ := s.Hierarchy(name)
		if value == "" {
			return State{}, domain.NewConfigurationError(name, "empty hierarchical path")
		}
		if h.Depth(value) > h.Levels() {
			return State{}, domain.NewConfigurationError(name, "path %q is deeper than %d levels", value, h.Levels())
		}
		s.hierarchical = cloneWith(s.hierarchical, name, value)
	}
	return s, nil
}

// Remove drops value from the facet. For a hierarchical facet the refinement
// is cleared when value is the refined path or one of its ancestors.
func (s State) Remove(kind facet.Kind, name, value string) (State, error) {
	if err := s.check(kind, name); err != nil {
		return State{}, err
	}
	switch kind {
	case facet.Conjunctive:
		s.refinements = withoutValue(s.refinements, name, value)
	case facet.Disjunctive:
		s.disjunctiveRef = withoutValue(s.disjunctiveRef, name, value)
	case facet.Hierarchical:
		h, _ := s.Hierarchy(name)
		if h.IsAncestorOrSelf(value, s.hierarchical[name]) {
			s.hierarchical = cloneWithout(s.hierarchical, name)
		}
	}
	return s, nil
}

// Toggle removes value if refined, else adds it. On a hierarchical facet,
// toggling the refined path or an ancestor moves the refinement to the
// parent of value.
func (s State) Toggle(kind facet.Kind, name, value string) (State, error) {
	if err := s.check(kind, name); err != nil {
		return State{}, err
	}
	if kind == facet.Hierarchical {
		h, _ := s.Hierarchy(name)
		if !h.IsAncestorOrSelf(value, s.hierarchical[name]) {
			return s.Add(kind, name, value)
		}
		if parent := h.Parent(value); parent != "" {
			s.hierarchical = cloneWith(s.hierarchical, name, parent)
		} else {
			s.hierarchical = cloneWithout(s.hierarchical, name)
		}
		return s, nil
	}
	if s.IsRefined(name, value) {
		return s.Remove(kind, name, value)
	}
	return s.Add(kind, name, value)
}

// Clear drops every refinement of the facet.
func (s State) Clear(kind facet.Kind, name string) (State, error) {
	if err := s.check(kind, name); err != nil {
		return State{}, err
	}
	switch kind {
	case facet.Conjunctive:
		s.refinements = cloneWithout(s.refinements, name)
		s.exclusions = cloneWithout(s.exclusions, name)
	case facet.Disjunctive:
		s.disjunctiveRef = cloneWithout(s.disjunctiveRef, name)
	case facet.Hierarchical:
		s.hierarchical = cloneWithout(s.hierarchical, name)
	}
	return s, nil
}

// RefineLevel refines segment at the given level of a hierarchical facet,
// keeping the current path above it and clearing every level below it.
func (s State) RefineLevel(name string, level int, segment string) (State, error) {
	if err := s.check(facet.Hierarchical, name); err != nil {
		return State{}, err
	}
	h, _ := s.Hierarchy(name)
	if level < 0 || level >= h.Levels() {
		return State{}, domain.NewConfigurationError(name, "level %d out of range [0, %d)", level, h.Levels())
	}
	segments := h.Split(s.hierarchical[name])
	if level > len(segments) {
		return State{}, domain.NewConfigurationError(name, "level %d refined before level %d", level, len(segments))
	}
	path := h.Join(append(slices.Clone(segments[:level]), segment))
	return s.Add(facet.Hierarchical, name, path)
}

// Exclude adds a negative refinement on a conjunctive facet.
func (s State) Exclude(name, value string) (State, error) {
	if err := s.check(facet.Conjunctive, name); err != nil {
		return State{}, err
	}
	s.exclusions = withValue(s.exclusions, name, value)
	return s, nil
}

// Include removes a negative refinement from a conjunctive facet.
func (s State) Include(name, value string) (State, error) {
	if err := s.check(facet.Conjunctive, name); err != nil {
		return State{}, err
	}
	s.exclusions = withoutValue(s.exclusions, name, value)
	return s, nil
}

// ToggleExclusion excludes value, or lifts an existing exclusion.
func (s State) ToggleExclusion(name, value string) (State, error) {
	if s.IsExcluded(name, value) {
		return s.Include(name, value)
	}
	return s.Exclude(name, value)
}

// AddNumericRefinement adds "attr op value".
func (s State) AddNumericRefinement(attr string, op query.Operator, value float64) (State, error) {
	if attr == "" {
		return State{}, domain.NewConfigurationError("", "numeric refinement needs an attribute")
	}
	if !op.IsValid() {
		return State{}, domain.NewConfigurationError(attr, "invalid numeric operator %q", op)
	}
	if slices.Contains(s.numeric[attr][op], value) {
		return s, nil
	}
	ops := maps.Clone(s.numeric[attr])
	if ops == nil {
		ops = map[query.Operator][]float64{}
	}
	ops[op] = append(slices.Clone(ops[op]), value)
	s.numeric = cloneWith(s.numeric, attr, ops)
	return s, nil
}

// RemoveNumericRefinement removes "attr op value". An empty op removes value
// under every operator.
func (s State) RemoveNumericRefinement(attr string, op query.Operator, value float64) (State, error) {
	if op != "" && !op.IsValid() {
		return State{}, domain.NewConfigurationError(attr, "invalid numeric operator %q", op)
	}
	current, ok := s.numeric[attr]
	if !ok {
		return s, nil
	}
	ops := make(map[query.Operator][]float64, len(current))
	for o, vals := range current {
		if op == "" || o == op {
			vals = slices.DeleteFunc(slices.Clone(vals), func(v float64) bool { return v == value })
		}
		if len(vals) > 0 {
			ops[o] = vals
		}
	}
	if len(ops) == 0 {
		s.numeric = cloneWithout(s.numeric, attr)
	} else {
		s.numeric = cloneWith(s.numeric, attr, ops)
	}
	return s, nil
}

// ClearNumericRefinements drops the numeric refinements of attr ("" = all).
func (s State) ClearNumericRefinements(attr string) State {
	if attr == "" {
		s.numeric = map[string]map[query.Operator][]float64{}
		return s
	}
	s.numeric = cloneWithout(s.numeric, attr)
	return s
}

// AddTagRefinement adds a tag filter.
func (s State) AddTagRefinement(tag string) (State, error) {
	if tag == "" {
		return State{}, domain.NewConfigurationError("", "empty tag")
	}
	if slices.Contains(s.tags, tag) {
		return s, nil
	}
	s.tags = append(slices.Clone(s.tags), tag)
	return s, nil
}

// RemoveTagRefinement removes a tag filter.
func (s State) RemoveTagRefinement(tag string) State {
	if !slices.Contains(s.tags, tag) {
		return s
	}
	s.tags = slices.DeleteFunc(slices.Clone(s.tags), func(t string) bool { return t == tag })
	return s
}

// ToggleTagRefinement removes tag if present, else adds it.
func (s State) ToggleTagRefinement(tag string) (State, error) {
	if slices.Contains(s.tags, tag) {
		return s.RemoveTagRefinement(tag), nil
	}
	return s.AddTagRefinement(tag)
}

// ClearTags drops every tag filter.
func (s State) ClearTags() State {
	s.tags = nil
	return s
}

// ClearRefinements drops every facet, numeric and tag refinement.
func (s State) ClearRefinements() State {
	s.refinements = map[string][]string{}
	s.exclusions = map[string][]string{}
	s.disjunctiveRef = map[string][]string{}
	s.hierarchical = map[string]string{}
	s.numeric = map[string]map[query.Operator][]float64{}
	s.tags = nil
	return s
}

// SetQuery replaces the free-text query and goes back to the first page.
func (s State) SetQuery(q string) (State, error) {
	if len(q) > MaxQueryLength {
		return State{}, domain.NewConfigurationError("", "query too long (max %d chars)", MaxQueryLength)
	}
	s.query = q
	s.page = 0
	return s, nil
}

// SetPage moves to a zero-based page.
func (s State) SetPage(page int) (State, error) {
	if page < 0 {
		return State{}, domain.NewConfigurationError("", "page must be >= 0, got %d", page)
	}
	s.page = page
	return s, nil
}

// SetHitsPerPage changes the page size.
func (s State) SetHitsPerPage(n int) (State, error) {
	if n <= 0 || n > MaxHitsPerPage {
		return State{}, domain.NewConfigurationError("", "hitsPerPage must be between 1 and %d", MaxHitsPerPage)
	}
	s.hitsPerPage = n
	return s, nil
}

// withValue returns a copy of m with value appended to m[key].
func withValue(m map[string][]string, key, value string) map[string][]string {
	if slices.Contains(m[key], value) {
		return m
	}
	return cloneWith(m, key, append(slices.Clone(m[key]), value))
}

// withoutValue returns a copy of m with value removed from m[key].
func withoutValue(m map[string][]string, key, value string) map[string][]string {
	if !slices.Contains(m[key], value) {
		return m
	}
	rest := slices.DeleteFunc(slices.Clone(m[key]), func(v string) bool { return v == value })
	if len(rest) == 0 {
		return cloneWithout(m, key)
	}
	return cloneWith(m, key, rest)
}

func cloneWith[V any](m map[string]V, key string, v V) map[string]V {
	cp := maps.Clone(m)
	if cp == nil {
		cp = make(map[string]V, 1)
	}
	cp[key] = v
	return cp
}

func cloneWithout[V any](m map[string]V, key string) map[string]V {
	if _, ok := m[key]; !ok {
		return m
	}
	cp := maps.Clone(m)
	delete(cp, key)
	return cp
}

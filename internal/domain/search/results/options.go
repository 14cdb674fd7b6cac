package results

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// FacetOptions tunes how facet values are ordered.
type FacetOptions struct {
	// SortBy lists "attribute[:direction]" clauses, attribute being one of
	// count, name or isRefined.
	SortBy []string
	// FacetOrdering set to false ignores server ordering hints.
	FacetOrdering *bool
	// SortFunc replaces SortBy when set.
	SortFunc func(a, b Value) int
}

// Remainder policies of a server ordering hint.
const (
	RemainingCount  = "count"
	RemainingAlpha  = "alpha"
	RemainingHidden = "hidden"
)

type entry struct {
	Value
	key string // hint key: the value itself, or the full path of a tree node
	idx int
}

type comparator func(a, b entry) int

func byCountDesc(a, b entry) int { return cmp.Compare(b.Count, a.Count) }

func byName(a, b entry) int { return strings.Compare(a.Name, b.Name) }

func byRefined(a, b entry) int {
	switch {
	case a.IsRefined == b.IsRefined:
		return 0
	case a.IsRefined:
		return 1
	default:
		return -1
	}
}

// sortEntries sorts in place; ties fall back to name then key.
func sortEntries(entries []entry, c comparator) {
	slices.SortStableFunc(entries, func(a, b entry) int {
		if r := c(a, b); r != 0 {
			return r
		}
		if r := byName(a, b); r != 0 {
			return r
		}
		return strings.Compare(a.key, b.key)
	})
}

// Validate checks the SortBy clauses, so callers can reject them before
// running a search.
func (o FacetOptions) Validate() error {
	_, err := o.comparator("sortBy")
	return err
}

// comparator compiles SortFunc or SortBy; nil means neither was given.
func (o FacetOptions) comparator(facetName string) (comparator, error) {
	if o.SortFunc != nil {
		return func(a, b entry) int { return o.SortFunc(a.Value, b.Value) }, nil
	}
	if len(o.SortBy) == 0 {
		return nil, nil
	}

	clauses := make([]comparator, 0, len(o.SortBy))
	for _, raw := range o.SortBy {
		c, err := parseClause(facetName, raw)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return func(a, b entry) int {
		for _, c := range clauses {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}, nil
}

func parseClause(facetName, raw string) (comparator, error) {
	attr, dir, hasDir := strings.Cut(strings.TrimSpace(raw), ":")

	var (
		base comparator
		desc bool
	)
	switch attr {
	case "count":
		base, desc = func(a, b entry) int { return cmp.Compare(a.Count, b.Count) }, true
	case "name":
		base = byName
	case "isRefined":
		base, desc = byRefined, true
	default:
		return nil, domain.NewConfigurationError(facetName, "unknown sortBy attribute %q", attr)
	}

	if hasDir {
		switch dir {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return nil, domain.NewConfigurationError(facetName, "unknown sortBy direction %q", dir)
		}
	}

	if desc {
		return func(a, b entry) int { return base(b, a) }, nil
	}
	return base, nil
}

// orderPlan holds everything the ordering rules look at for one sibling list.
type orderPlan struct {
	hint     response.ValuesOrder
	hasHint  bool
	disabled bool
	custom   comparator
}

type orderRule struct {
	applies func(p orderPlan) bool
	apply   func(p orderPlan, entries []entry) []entry
}

// orderRules are tried top to bottom; the first one that applies wins.
var orderRules = []orderRule{
	{applies: func(p orderPlan) bool { return p.disabled }, apply: sortCustomOrDefault},
	{applies: func(p orderPlan) bool { return p.hasHint }, apply: applyHint},
	{applies: func(p orderPlan) bool { return p.custom != nil }, apply: sortCustomOrDefault},
	{applies: func(orderPlan) bool { return true }, apply: sortCustomOrDefault},
}

func (o FacetOptions) plan(custom comparator, hint response.ValuesOrder, hasHint bool) orderPlan {
	return orderPlan{
		hint:     hint,
		hasHint:  hasHint,
		disabled: o.FacetOrdering != nil && !*o.FacetOrdering,
		custom:   custom,
	}
}

func (p orderPlan) order(entries []entry) []entry {
	for _, r := range orderRules {
		if r.applies(p) {
			return r.apply(p, entries)
		}
	}
	return entries
}

func sortCustomOrDefault(p orderPlan, entries []entry) []entry {
	if p.custom != nil {
		sortEntries(entries, p.custom)
	} else {
		sortEntries(entries, byCountDesc)
	}
	return entries
}

// applyHint pins the hinted values first and places the rest according to
// the hint's remainder policy. Unknown policies behave like "count".
func applyHint(p orderPlan, entries []entry) []entry {
	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		byKey[e.key] = i
	}

	pinned := make(map[string]bool, len(p.hint.Order))
	out := make([]entry, 0, len(entries))
	for _, k := range p.hint.Order {
		i, ok := byKey[k]
		if !ok || pinned[k] {
			continue
		}
		pinned[k] = true
		out = append(out, entries[i])
	}

	rest := make([]entry, 0, len(entries)-len(out))
	for _, e := range entries {
		if !pinned[e.key] {
			rest = append(rest, e)
		}
	}

	switch p.hint.SortRemainingBy {
	case RemainingHidden:
		return out
	case RemainingAlpha:
		sortEntries(rest, byName)
	default:
		sortEntries(rest, byCountDesc)
	}
	return append(out, rest...)
}

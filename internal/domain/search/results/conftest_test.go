package results

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

const (
	giftCards     = "Best Buy Gift Cards"
	entertainment = "Best Buy Gift Cards > Entertainment Gift Cards"
	swag          = "Best Buy Gift Cards > Swag Gift Cards"
	useless       = "Best Buy Gift Cards > Useless Gift Cards"
	movies        = "Best Buy Gift Cards > Entertainment Gift Cards > Movies"
)

func boolPtr(b bool) *bool { return &b }

func mustState(t *testing.T, p state.Params) state.State {
	t.Helper()
	s, err := state.New(p)
	require.NoError(t, err)
	return s
}

func mustMerge(t *testing.T, st state.State, responses ...response.Response) *Results {
	t.Helper()
	r, err := Merge(st, responses)
	require.NoError(t, err)
	return r
}

func hintFor(key string, order []string, remaining string) *response.RenderingContent {
	return &response.RenderingContent{FacetOrdering: &response.FacetOrdering{
		Values: map[string]response.ValuesOrder{key: {Order: order, SortRemainingBy: remaining}},
	}}
}

// brandResults has "Apple" refined on the disjunctive facet brand. The main
// response only sees Apple; the fan-out response carries every brand.
func brandResults(t *testing.T, rc *response.RenderingContent) *Results {
	t.Helper()
	st := mustState(t, state.Params{
		Index:                  "products",
		DisjunctiveFacets:      []string{"brand"},
		DisjunctiveRefinements: map[string][]string{"brand": {"Apple"}},
	})
	main := response.Response{
		NbHits:           386,
		Facets:           map[string]map[string]int{"brand": {"Apple": 386}},
		RenderingContent: rc,
	}
	fan := response.Response{
		Facets: map[string]map[string]int{"brand": {"Samsung": 511, "Apple": 386, "Insignia™": 551}},
	}
	return mustMerge(t, st, main, fan)
}

func categoriesHierarchy(t *testing.T, rootPath string) facet.Hierarchy {
	t.Helper()
	h, err := facet.NewHierarchy("hierarchicalCategories", []string{
		"hierarchicalCategories.lvl0",
		"hierarchicalCategories.lvl1",
		"hierarchicalCategories.lvl2",
	}, "", rootPath)
	require.NoError(t, err)
	return h
}

func categoryCounts() map[string]map[string]int {
	return map[string]map[string]int{
		"hierarchicalCategories.lvl0": {
			giftCards:             80,
			"Cell Phones":         1920,
			"Computers & Tablets": 1858,
			"Appliances":          1533,
			"Audio":               1010,
		},
		"hierarchicalCategories.lvl1": {
			entertainment:            17,
			swag:                     20,
			useless:                  12,
			"Cell Phones > Unlocked": 900,
			"Audio > Headphones":     300,
		},
		"hierarchicalCategories.lvl2": {
			movies: 5,
		},
	}
}

// categoryResults has "Best Buy Gift Cards > Entertainment Gift Cards" refined.
func categoryResults(t *testing.T, rc *response.RenderingContent) *Results {
	t.Helper()
	st := mustState(t, state.Params{
		Index:                   "products",
		HierarchicalFacets:      []facet.Hierarchy{categoriesHierarchy(t, "")},
		HierarchicalRefinements: map[string]string{"hierarchicalCategories": entertainment},
	})
	main := response.Response{
		NbHits:           17,
		RenderingContent: rc,
		Facets: map[string]map[string]int{
			"hierarchicalCategories.lvl0": {giftCards: 17},
			"hierarchicalCategories.lvl1": {entertainment: 17},
		},
	}
	fan := response.Response{Facets: categoryCounts()}
	return mustMerge(t, st, main, fan)
}

func valueNames(values []Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Name
	}
	return out
}

func nodeNames(nodes []HierarchicalValue) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func findNode(nodes []HierarchicalValue, name string) *HierarchicalValue {
	for i := range nodes {
		if nodes[i].Name == name {
			return &nodes[i]
		}
	}
	return nil
}

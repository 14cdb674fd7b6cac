package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

func ptr[T any](v T) *T { return &v }

func leaf(name, path string, count int, refined bool) HierarchicalValue {
	return HierarchicalValue{
		Name: name, Path: ptr(path), EscapedValue: ptr(path), Count: ptr(count), IsRefined: refined, Exhaustive: true,
	}
}

func TestHierarchicalValues_DefaultTree(t *testing.T) {
	tree, err := categoryResults(t, nil).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)

	giftCardsNode := leaf(giftCards, giftCards, 80, true)
	entertainmentNode := leaf("Entertainment Gift Cards", entertainment, 17, true)
	entertainmentNode.Data = []HierarchicalValue{leaf("Movies", movies, 5, false)}
	giftCardsNode.Data = []HierarchicalValue{
		leaf("Swag Gift Cards", swag, 20, false),
		entertainmentNode,
		leaf("Useless Gift Cards", useless, 12, false),
	}

	assert.Equal(t, HierarchicalValue{
		Name:       "hierarchicalCategories",
		IsRefined:  true,
		Exhaustive: true,
		Data: []HierarchicalValue{
			leaf("Cell Phones", "Cell Phones", 1920, false),
			leaf("Computers & Tablets", "Computers & Tablets", 1858, false),
			leaf("Appliances", "Appliances", 1533, false),
			leaf("Audio", "Audio", 1010, false),
			giftCardsNode,
		},
	}, tree)
}

func TestHierarchicalValues_RootHint(t *testing.T) {
	tests := []struct {
		name      string
		order     []string
		remaining string
		want      []string
	}{
		{
			"no remainder policy",
			[]string{"Appliances", giftCards, "Audio"}, "",
			[]string{"Appliances", giftCards, "Audio", "Cell Phones", "Computers & Tablets"},
		},
		{
			"remainder by count",
			[]string{"Appliances", giftCards}, RemainingCount,
			[]string{"Appliances", giftCards, "Cell Phones", "Computers & Tablets", "Audio"},
		},
		{
			"remainder by alpha",
			[]string{"Appliances", giftCards}, RemainingAlpha,
			[]string{"Appliances", giftCards, "Audio", "Cell Phones", "Computers & Tablets"},
		},
		{
			"remainder hidden",
			[]string{"Appliances", giftCards}, RemainingHidden,
			[]string{"Appliances", giftCards},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := categoryResults(t, hintFor("hierarchicalCategories.lvl0", tt.order, tt.remaining))
			tree, err := r.HierarchicalValues("hierarchicalCategories", FacetOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, nodeNames(tree.Data))

			// the root hint does not reach the second level
			gc := findNode(tree.Data, giftCards)
			require.NotNil(t, gc)
			assert.Equal(t, []string{"Swag Gift Cards", "Entertainment Gift Cards", "Useless Gift Cards"}, nodeNames(gc.Data))
		})
	}
}

func TestHierarchicalValues_TwoLevelsOrdered(t *testing.T) {
	rc := &response.RenderingContent{FacetOrdering: &response.FacetOrdering{
		Values: map[string]response.ValuesOrder{
			"hierarchicalCategories.lvl0": {Order: []string{giftCards}, SortRemainingBy: RemainingHidden},
			"hierarchicalCategories.lvl1": {Order: []string{entertainment}, SortRemainingBy: RemainingCount},
		},
	}}

	tree, err := categoryResults(t, rc).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{giftCards}, nodeNames(tree.Data))
	assert.Equal(t,
		[]string{"Entertainment Gift Cards", "Swag Gift Cards", "Useless Gift Cards"},
		nodeNames(tree.Data[0].Data))
}

func TestHierarchicalValues_FacetOrderingDisabled(t *testing.T) {
	r := categoryResults(t, hintFor("hierarchicalCategories.lvl0", []string{"Audio"}, RemainingHidden))

	tree, err := r.HierarchicalValues("hierarchicalCategories", FacetOptions{
		FacetOrdering: boolPtr(false),
		SortBy:        []string{"name:asc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Appliances", "Audio", giftCards, "Cell Phones", "Computers & Tablets"}, nodeNames(tree.Data))
}

func TestHierarchicalValues_LevelKeyFallback(t *testing.T) {
	h, err := facet.NewHierarchy("categories", []string{"cat0", "cat1"}, "", "")
	require.NoError(t, err)
	st := mustState(t, state.Params{Index: "products", HierarchicalFacets: []facet.Hierarchy{h}})
	facets := map[string]map[string]int{"cat0": {"A": 1, "B": 2, "C": 3}}

	tests := []struct {
		name string
		rc   *response.RenderingContent
		want []string
	}{
		{"generic key", hintFor("categories.lvl0", []string{"A"}, ""), []string{"A", "C", "B"}},
		{"attribute key", hintFor("cat0", []string{"B"}, RemainingAlpha), []string{"B", "A", "C"}},
		{"no hint", nil, []string{"C", "B", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			main := response.Response{Facets: facets, RenderingContent: tt.rc}
			tree, err := mustMerge(t, st, main, response.Response{}).HierarchicalValues("categories", FacetOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, nodeNames(tree.Data))
			assert.False(t, tree.IsRefined)
		})
	}
}

func TestHierarchicalValues_UnrefinedIsCollapsed(t *testing.T) {
	st := mustState(t, state.Params{
		Index:              "products",
		HierarchicalFacets: []facet.Hierarchy{categoriesHierarchy(t, "")},
	})
	main := response.Response{Facets: categoryCounts()}

	tree, err := mustMerge(t, st, main, response.Response{}).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)
	assert.False(t, tree.IsRefined)
	assert.Nil(t, tree.Path)
	assert.Nil(t, tree.Count)
	require.Len(t, tree.Data, 5)
	for _, n := range tree.Data {
		assert.Nil(t, n.Data, n.Name)
		assert.False(t, n.IsRefined, n.Name)
	}
}

func TestHierarchicalValues_RefiningFlipsWrapper(t *testing.T) {
	st := mustState(t, state.Params{
		Index:              "products",
		HierarchicalFacets: []facet.Hierarchy{categoriesHierarchy(t, "")},
	})
	st, err := st.RefineLevel("hierarchicalCategories", 0, "Audio")
	require.NoError(t, err)

	fan := response.Response{Facets: categoryCounts()}
	tree, err := mustMerge(t, st, response.Response{}, fan).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)
	assert.True(t, tree.IsRefined)

	audio := findNode(tree.Data, "Audio")
	require.NotNil(t, audio)
	assert.True(t, audio.IsRefined)
	assert.Equal(t, []string{"Headphones"}, nodeNames(audio.Data))
}

func TestHierarchicalValues_ExhaustiveIsAndOfLevels(t *testing.T) {
	st := mustState(t, state.Params{
		Index:                   "products",
		HierarchicalFacets:      []facet.Hierarchy{categoriesHierarchy(t, "")},
		HierarchicalRefinements: map[string]string{"hierarchicalCategories": giftCards},
	})
	fan := response.Response{Facets: categoryCounts(), ExhaustiveFacetsCount: boolPtr(false)}

	tree, err := mustMerge(t, st, response.Response{}, fan).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)
	assert.False(t, tree.Exhaustive)
	assert.False(t, tree.Data[0].Exhaustive)
}

func TestHierarchicalValues_RootPath(t *testing.T) {
	st := mustState(t, state.Params{
		Index:              "products",
		HierarchicalFacets: []facet.Hierarchy{categoriesHierarchy(t, giftCards)},
	})
	fan := response.Response{Facets: categoryCounts()}

	tree, err := mustMerge(t, st, response.Response{}, fan).HierarchicalValues("hierarchicalCategories", FacetOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{giftCards}, nodeNames(tree.Data))
	assert.False(t, tree.IsRefined)
	assert.Equal(t,
		[]string{"Swag Gift Cards", "Entertainment Gift Cards", "Useless Gift Cards"},
		nodeNames(tree.Data[0].Data))
}

func TestHierarchicalValues_Errors(t *testing.T) {
	_, err := brandResults(t, nil).HierarchicalValues("brand", FacetOptions{})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	_, err = categoryResults(t, nil).HierarchicalValues("hierarchicalCategories", FacetOptions{SortBy: []string{"depth"}})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for bad sortBy, got %v", err)
	}

	tree, err := brandResults(t, nil).HierarchicalValues("nope", FacetOptions{})
	require.NoError(t, err)
	assert.Empty(t, tree.Data)
}

func twoLevelHierarchy(t *testing.T) facet.Hierarchy {
	t.Helper()
	h, err := facet.NewHierarchy("cat", []string{"cat.lvl0", "cat.lvl1"}, "", "")
	require.NoError(t, err)
	return h
}

func TestHierarchicalValues_RefinedBranchCutFromFanout(t *testing.T) {
	st := mustState(t, state.Params{
		Index:                   "products",
		MaxValuesPerFacet:       1,
		HierarchicalFacets:      []facet.Hierarchy{twoLevelHierarchy(t)},
		HierarchicalRefinements: map[string]string{"cat": "A"},
	})
	main := response.Response{Facets: map[string]map[string]int{
		"cat.lvl0": {"A": 5},
		"cat.lvl1": {"A > x": 5},
	}}
	// top value of the unscoped level only
	fan := response.Response{Facets: map[string]map[string]int{
		"cat.lvl0": {"B": 900},
		"cat.lvl1": {"B > y": 900},
	}}

	tree, err := mustMerge(t, st, main, fan).HierarchicalValues("cat", FacetOptions{})
	require.NoError(t, err)

	a := leaf("A", "A", 5, true)
	a.Data = []HierarchicalValue{leaf("x", "A > x", 5, false)}
	assert.Equal(t, []HierarchicalValue{leaf("B", "B", 900, false), a}, tree.Data)
}

func TestHierarchicalValues_FanoutCountsWinOverMain(t *testing.T) {
	st := mustState(t, state.Params{
		Index:                   "products",
		HierarchicalFacets:      []facet.Hierarchy{twoLevelHierarchy(t)},
		HierarchicalRefinements: map[string]string{"cat": "A > x"},
	})
	main := response.Response{Facets: map[string]map[string]int{
		"cat.lvl0": {"A": 3},
		"cat.lvl1": {"A > x": 3},
	}}
	fan := response.Response{Facets: map[string]map[string]int{
		"cat.lvl0": {"A": 10, "B": 4},
		"cat.lvl1": {"A > x": 3, "A > w": 7},
	}}

	tree, err := mustMerge(t, st, main, fan).HierarchicalValues("cat", FacetOptions{})
	require.NoError(t, err)

	a := findNode(tree.Data, "A")
	require.NotNil(t, a)
	assert.Equal(t, 10, *a.Count)
	assert.Equal(t, []string{"w", "x"}, nodeNames(a.Data))
}

func TestHierarchicalValues_RefinedChainWithoutCounts(t *testing.T) {
	st := mustState(t, state.Params{
		Index:                   "products",
		HierarchicalFacets:      []facet.Hierarchy{twoLevelHierarchy(t)},
		HierarchicalRefinements: map[string]string{"cat": "A > z"},
	})
	fan := response.Response{Facets: map[string]map[string]int{"cat.lvl0": {"B": 1}}}

	tree, err := mustMerge(t, st, response.Response{}, fan).HierarchicalValues("cat", FacetOptions{})
	require.NoError(t, err)

	a := leaf("A", "A", 0, true)
	a.Data = []HierarchicalValue{leaf("z", "A > z", 0, true)}
	assert.Equal(t, []HierarchicalValue{leaf("B", "B", 1, false), a}, tree.Data)
}

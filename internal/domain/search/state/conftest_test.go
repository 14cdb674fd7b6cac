package state

import (
	"testing"

	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
)

func mustHierarchy(t *testing.T, name string, attrs ...string) facet.Hierarchy {
	t.Helper()
	h, err := facet.NewHierarchy(name, attrs, "", "")
	if err != nil {
		t.Fatalf("NewHierarchy: %v", err)
	}
	return h
}

func mustState(t *testing.T, p Params) State {
	t.Helper()
	s, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// shopState declares one facet of each kind, the way a product listing would.
func shopState(t *testing.T) State {
	t.Helper()
	return mustState(t, Params{
		Index:             "products",
		Query:             "tv",
		Facets:            []string{"type"},
		DisjunctiveFacets: []string{"brand", "color"},
		HierarchicalFacets: []facet.Hierarchy{
			mustHierarchy(t, "categories", "categories.lvl0", "categories.lvl1", "categories.lvl2"),
		},
	})
}

package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

// --- Mocks ---

type mockBackend struct {
	mu      sync.Mutex
	queries []query.Descriptor
	fn      func(d query.Descriptor) (*response.Response, error)
}

func (m *mockBackend) Search(_ context.Context, _ domidx.Index, d query.Descriptor) (*response.Response, error) {
	m.mu.Lock()
	m.queries = append(m.queries, d)
	m.mu.Unlock()
	return m.fn(d)
}

type mockIndexes struct {
	err error
}

func (m *mockIndexes) Get(_ context.Context, name string) (domidx.Index, error) {
	if m.err != nil {
		return domidx.Index{}, m.err
	}
	return domidx.Reconstruct(name, []field.Field{field.Reconstruct("brand", field.Tag)}, 0, 1), nil
}

// brandBackend answers the main query with refined counts and the brand
// fan-out query with counts as if brand were unrefined.
func brandBackend() *mockBackend {
	return &mockBackend{fn: func(d query.Descriptor) (*response.Response, error) {
		if d.Fanout {
			return &response.Response{
				NbHits: 8,
				Facets: map[string]map[string]int{"brand": {"Apple": 3, "Samsung": 5}},
			}, nil
		}
		return &response.Response{
			NbHits:      3,
			NbPages:     1,
			HitsPerPage: 20,
			Facets:      map[string]map[string]int{"brand": {"Apple": 3}},
		}, nil
	}}
}

func newTestService(t *testing.T, b Backend, idx IndexReader) *Service {
	t.Helper()
	svc, err := New(b, idx, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(svc.Release)
	return svc
}

func brandState(t *testing.T) state.State {
	t.Helper()
	st, err := state.New(state.Params{
		Index:                  "products",
		DisjunctiveFacets:      []string{"brand"},
		DisjunctiveRefinements: map[string][]string{"brand": {"Apple"}},
	})
	require.NoError(t, err)
	return st
}

func valueNames(vals []results.Value) map[string]int {
	out := make(map[string]int, len(vals))
	for _, v := range vals {
		out[v.Name] = v.Count
	}
	return out
}

// --- Tests ---

func TestSearch_FansOutAndMerges(t *testing.T) {
	b := brandBackend()
	svc := newTestService(t, b, &mockIndexes{})

	res, err := svc.Search(context.Background(), brandState(t))
	require.NoError(t, err)

	assert.Len(t, b.queries, 2)
	assert.Equal(t, 3, res.NbHits())

	vals, err := res.FacetValues("brand", results.FacetOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Apple": 3, "Samsung": 5}, valueNames(vals))
}

func TestSearch_BackendError(t *testing.T) {
	boom := errors.New("backend down")
	b := &mockBackend{fn: func(d query.Descriptor) (*response.Response, error) {
		if d.Fanout {
			return nil, boom
		}
		return &response.Response{}, nil
	}}
	svc := newTestService(t, b, &mockIndexes{})

	_, err := svc.Search(context.Background(), brandState(t))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestSearch_InvalidRequestPassesThrough(t *testing.T) {
	b := &mockBackend{fn: func(_ query.Descriptor) (*response.Response, error) {
		return nil, domain.ErrInvalidRequest
	}}
	svc := newTestService(t, b, &mockIndexes{})

	_, err := svc.Search(context.Background(), brandState(t))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.NotErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestSearch_IndexNotFound(t *testing.T) {
	b := brandBackend()
	svc := newTestService(t, b, &mockIndexes{err: domain.ErrIndexNotFound})

	_, err := svc.Search(context.Background(), brandState(t))
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.Empty(t, b.queries)
}

func TestRefine_AppliesOperations(t *testing.T) {
	b := brandBackend()
	svc := newTestService(t, b, &mockIndexes{})

	res, err := svc.Refine(context.Background(), brandState(t), []state.Operation{
		{Type: state.OpToggle, Kind: facet.Disjunctive, Facet: "brand", Value: "Samsung"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Apple", "Samsung"}, res.State().Refinements("brand"))
}

func TestRefine_RejectedOperationSendsNothing(t *testing.T) {
	b := brandBackend()
	svc := newTestService(t, b, &mockIndexes{})

	_, err := svc.Refine(context.Background(), brandState(t), []state.Operation{
		{Type: state.OpAdd, Kind: facet.Conjunctive, Facet: "undeclared", Value: "x"},
	})
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, b.queries)
}

func TestSearch_ManyDisjunctiveFacets(t *testing.T) {
	facets := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	st, err := state.New(state.Params{Index: "products", DisjunctiveFacets: facets})
	require.NoError(t, err)

	b := &mockBackend{fn: func(d query.Descriptor) (*response.Response, error) {
		counts := map[string]map[string]int{}
		for _, f := range d.Facets {
			counts[f] = map[string]int{"v": 1}
		}
		return &response.Response{Facets: counts}, nil
	}}
	svc := newTestService(t, b, &mockIndexes{})

	res, err := svc.Search(context.Background(), st)
	require.NoError(t, err)
	assert.Len(t, b.queries, 1+len(facets))
	for _, f := range facets {
		vals, err := res.FacetValues(f, results.FacetOptions{})
		require.NoError(t, err)
		assert.Len(t, vals, 1)
	}
}

package search

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

func TestSearch_HitsAndPaging(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.SearchQuery
	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{
			Total: 45,
			Entries: []db.SearchEntry{{
				Key:    "facetdex:products:sku-1",
				Fields: map[string]string{"brand": "Apple", "price": "10", "name": "case"},
			}},
		}, nil
	}

	resp, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{
		Index: "products", Query: "case", Page: 2, HitsPerPage: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "facetdex:idx:products", got.IndexName)
	assert.Equal(t, 40, got.Offset)
	assert.Equal(t, 20, got.Limit)
	assert.Equal(t, "case", got.Filter.Text)

	assert.Equal(t, 45, resp.NbHits)
	assert.Equal(t, 3, resp.NbPages)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 3, resp.ProcessingTimeMS)
	assert.Empty(t, resp.QueryID)
	require.Len(t, resp.Hits, 1)

	var hit map[string]any
	require.NoError(t, json.Unmarshal(resp.Hits[0], &hit))
	assert.Equal(t, "sku-1", hit["objectID"])
	assert.Equal(t, "Apple", hit["brand"])
	assert.InDelta(t, 10.0, hit["price"], 1e-9)
}

func TestSearch_FanoutSkipsHits(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		assert.Equal(t, 0, q.Limit)
		return &db.SearchResult{Total: 7}, nil
	}

	resp, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{
		Index: "products", HitsPerPage: 20, Fanout: true, ClickAnalytics: true,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.Equal(t, 7, resp.NbHits)
	assert.Empty(t, resp.QueryID)
}

func TestSearch_QueryIDWithClickAnalytics(t *testing.T) {
	repo, _ := newTestRepo(t)

	resp, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{
		Index: "products", HitsPerPage: 20, ClickAnalytics: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.QueryID, 36)
}

func TestSearch_Facets(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.AggregateQuery
	ms.aggregateFn = func(_ context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
		got = q
		return &db.AggregateResult{
			Counts: []db.FieldCounts{
				{Field: "brand", Values: map[string]int{"Apple": 3, "Samsung": 2}},
				{Field: "categories_lvl0", Values: map[string]int{"Phones": 5}, Truncated: true},
				{Field: "price", Values: map[string]int{"10": 5}},
			},
			Stats: []db.FieldStats{{Field: "price", Min: 1, Max: 10, Avg: 5, Sum: 25}},
		}, nil
	}

	resp, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{
		Index:             "products",
		HitsPerPage:       20,
		Facets:            []string{"brand", "categories.lvl0", "price", "unknown"},
		MaxValuesPerFacet: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"brand", "categories_lvl0", "price"}, got.TagFields)
	assert.Equal(t, []string{"price"}, got.StatFields)
	assert.Equal(t, "|", got.Separator)
	assert.Equal(t, 10, got.Limit)

	assert.Equal(t, map[string]int{"Apple": 3, "Samsung": 2}, resp.Facets["brand"])
	assert.Equal(t, map[string]int{"Phones": 5}, resp.Facets["categories.lvl0"])
	assert.Equal(t, response.Stats{Min: 1, Max: 10, Avg: 5, Sum: 25}, resp.FacetsStats["price"])
	require.NotNil(t, resp.ExhaustiveFacetsCount)
	assert.False(t, *resp.ExhaustiveFacetsCount)
}

func TestSearch_NoFacetsNoAggregate(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.aggregateFn = func(_ context.Context, _ *db.AggregateQuery) (*db.AggregateResult, error) {
		t.Error("aggregate must not be called")
		return nil, nil
	}

	resp, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{Index: "products"})
	require.NoError(t, err)
	assert.Nil(t, resp.Facets)
	assert.Nil(t, resp.ExhaustiveFacetsCount)
}

func TestSearch_RenderingContentFromIndex(t *testing.T) {
	repo, _ := newTestRepo(t)
	ordering := &response.FacetOrdering{Facet: &response.FacetsOrder{Order: []string{"brand"}}}
	idx := testIndex(t).WithFacetOrdering(ordering)

	resp, err := repo.Search(context.Background(), idx, query.Descriptor{Index: "products"})
	require.NoError(t, err)
	assert.Same(t, ordering, resp.Ordering())
}

func TestSearch_IndexNotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFn = func(_ context.Context, _ *db.SearchQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{Index: "products"})
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestSearch_AggregateError(t *testing.T) {
	repo, ms := newTestRepo(t)
	boom := errors.New("boom")
	ms.aggregateFn = func(_ context.Context, _ *db.AggregateQuery) (*db.AggregateResult, error) {
		return nil, boom
	}

	_, err := repo.Search(context.Background(), testIndex(t), query.Descriptor{
		Index: "products", Facets: []string{"brand"},
	})
	assert.ErrorIs(t, err, boom)
}

// --- filter translation ---

func TestBuildFilter(t *testing.T) {
	f, err := buildFilter(testIndex(t), query.Descriptor{
		Query: "phone",
		FacetFilters: []query.FilterGroup{
			{{Attribute: "brand", Value: "Apple"}, {Attribute: "brand", Value: "Samsung"}},
			{{Attribute: "categories.lvl0", Value: "Phones"}},
			{{Attribute: "color", Value: "red", Negated: true}},
		},
		NumericFilters: []query.NumericFilter{{Attribute: "price", Operator: query.OpGT, Value: 10}},
		TagFilters:     []string{"promo"},
	})
	require.NoError(t, err)

	assert.Equal(t, "phone", f.Text)
	assert.Equal(t, [][]db.TagCondition{
		{{Field: "brand", Value: "Apple"}, {Field: "brand", Value: "Samsung"}},
		{{Field: "categories_lvl0", Value: "Phones"}},
		{{Field: "color", Value: "red", Negated: true}},
		{{Field: "_tags", Value: "promo"}},
	}, f.Groups)
	require.Len(t, f.Ranges, 1)
	assert.Equal(t, db.RangeCondition{Field: "price", Min: 10, Max: math.Inf(1), MinExclusive: true}, f.Ranges[0])
}

func TestBuildFilter_UndeclaredAttribute(t *testing.T) {
	_, err := buildFilter(testIndex(t), query.Descriptor{
		FacetFilters: []query.FilterGroup{{{Attribute: "nope", Value: "x"}}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = buildFilter(testIndex(t), query.Descriptor{
		NumericFilters: []query.NumericFilter{{Attribute: "brand", Operator: query.OpEQ, Value: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestRangeOf(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		op   query.Operator
		want db.RangeCondition
	}{
		{query.OpEQ, db.RangeCondition{Field: "p", Min: 5, Max: 5}},
		{query.OpNEQ, db.RangeCondition{Field: "p", Min: 5, Max: 5, Negated: true}},
		{query.OpGT, db.RangeCondition{Field: "p", Min: 5, Max: inf, MinExclusive: true}},
		{query.OpGTE, db.RangeCondition{Field: "p", Min: 5, Max: inf}},
		{query.OpLT, db.RangeCondition{Field: "p", Min: -inf, Max: 5, MaxExclusive: true}},
		{query.OpLTE, db.RangeCondition{Field: "p", Min: -inf, Max: 5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got, err := rangeOf("p", tt.op, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := rangeOf("p", "~", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestNbPages(t *testing.T) {
	assert.Equal(t, 0, nbPages(0, 20))
	assert.Equal(t, 1, nbPages(20, 20))
	assert.Equal(t, 2, nbPages(21, 20))
	assert.Equal(t, 0, nbPages(10, 0))
}

package search

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/facetdex/internal/db"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn    func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	aggregateFn func(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error)
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, q)
	}
	return &db.AggregateResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	tick := time.Unix(1700000000, 0)
	repo.now = func() time.Time {
		tick = tick.Add(3 * time.Millisecond)
		return tick
	}
	return repo, ms
}

func testIndex(t *testing.T) domidx.Index {
	t.Helper()
	return domidx.Reconstruct(
		"products",
		[]field.Field{
			field.Reconstruct("brand", field.Tag),
			field.Reconstruct("color", field.Tag),
			field.Reconstruct("categories.lvl0", field.Tag),
			field.Reconstruct("price", field.Numeric),
			field.Reconstruct("name", field.Text),
		},
		1700000000000,
		1,
	)
}

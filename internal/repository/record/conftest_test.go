package record

import (
	"context"
	"testing"

	"github.com/kailas-cloud/facetdex/internal/db"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hreplaceFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn  func(ctx context.Context, key string) (map[string]string, error)
	delFn      func(ctx context.Context, keys ...string) (int64, error)
}

func (m *mockStore) HReplaceMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hreplaceFn != nil {
		return m.hreplaceFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testIndex(t *testing.T) domidx.Index {
	t.Helper()
	return domidx.Reconstruct(
		"products",
		[]field.Field{
			field.Reconstruct("brand", field.Tag),
			field.Reconstruct("color", field.Tag),
			field.Reconstruct("price", field.Numeric),
			field.Reconstruct("name", field.Text),
		},
		1700000000000,
		1,
	)
}

package respcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

type mockBackend struct {
	resp  *response.Response
	err   error
	calls int
}

func (m *mockBackend) Search(_ context.Context, _ domidx.Index, _ query.Descriptor) (*response.Response, error) {
	m.calls++
	return m.resp, m.err
}

// memStore is an in-memory KV store with the db.ErrKeyNotFound contract.
type memStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCache(t *testing.T, inner *mockBackend) (*CachedBackend, *memStore, *prometheus.CounterVec) {
	t.Helper()
	ms := &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	c, err := New(inner, ms, time.Minute, counter, zap.NewNop())
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	t.Cleanup(c.Close)
	return c, ms, counter
}

func testIndex(revision int) domidx.Index {
	return domidx.Reconstruct("products",
		[]field.Field{field.Reconstruct("brand", field.Tag)},
		1700000000000, revision)
}

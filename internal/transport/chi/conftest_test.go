package chi

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
	"github.com/kailas-cloud/facetdex/internal/usecase/health"
	"github.com/kailas-cloud/facetdex/internal/usecase/records"
)

// --- Index service mock ---

type mockIndexService struct {
	createFn   func(ctx context.Context, name string, fields []field.Field, o *response.FacetOrdering) (domidx.Index, error)
	getFn      func(ctx context.Context, name string) (domidx.Index, error)
	listFn     func(ctx context.Context) ([]domidx.Index, error)
	deleteFn   func(ctx context.Context, name string) error
	orderingFn func(ctx context.Context, name string, o *response.FacetOrdering) (domidx.Index, error)
	statsFn    func(ctx context.Context, name string) (domidx.Stats, error)
}

func (m *mockIndexService) Create(
	ctx context.Context, name string, fields []field.Field, o *response.FacetOrdering,
) (domidx.Index, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, fields, o)
	}
	return domidx.Reconstruct(name, fields, 0, 1).WithFacetOrdering(o), nil
}

func (m *mockIndexService) Get(ctx context.Context, name string) (domidx.Index, error) {
	if m.getFn != nil {
		return m.getFn(ctx, name)
	}
	return domidx.Index{}, domain.ErrIndexNotFound
}

func (m *mockIndexService) List(ctx context.Context) ([]domidx.Index, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockIndexService) Delete(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockIndexService) SetFacetOrdering(
	ctx context.Context, name string, o *response.FacetOrdering,
) (domidx.Index, error) {
	if m.orderingFn != nil {
		return m.orderingFn(ctx, name, o)
	}
	return domidx.Reconstruct(name, nil, 0, 2).WithFacetOrdering(o), nil
}

func (m *mockIndexService) Stats(ctx context.Context, name string) (domidx.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, name)
	}
	return domidx.Stats{}, domain.ErrIndexNotFound
}

// --- Record service mock ---

type mockRecordService struct {
	upsertFn func(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error)
	batchFn  func(ctx context.Context, index string, items []map[string]any) ([]records.ItemResult, error)
	getFn    func(ctx context.Context, index, id string) (domrec.Record, error)
	deleteFn func(ctx context.Context, index, id string) error
}

func (m *mockRecordService) Upsert(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error) {
	return m.upsertFn(ctx, index, attrs)
}

func (m *mockRecordService) UpsertBatch(
	ctx context.Context, index string, items []map[string]any,
) ([]records.ItemResult, error) {
	return m.batchFn(ctx, index, items)
}

func (m *mockRecordService) Get(ctx context.Context, index, id string) (domrec.Record, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return domrec.Record{}, domain.ErrRecordNotFound
}

func (m *mockRecordService) Delete(ctx context.Context, index, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, index, id)
	}
	return nil
}

// --- Search service mock ---

// mockSearchService merges the responses returned by respond, one per
// query the state derives.
type mockSearchService struct {
	respond func(st state.State) ([]response.Response, error)
	got     state.State
}

func (m *mockSearchService) Search(_ context.Context, st state.State) (*results.Results, error) {
	m.got = st
	resps, err := m.respond(st)
	if err != nil {
		return nil, err
	}
	return results.Merge(st, resps)
}

func (m *mockSearchService) Refine(ctx context.Context, st state.State, ops []state.Operation) (*results.Results, error) {
	next, err := st.ApplyAll(ops)
	if err != nil {
		return nil, err
	}
	return m.Search(ctx, next)
}

// --- Health mock ---

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(context.Context) health.Report { return m.report }

// --- Helpers ---

type testDeps struct {
	indexes *mockIndexService
	records *mockRecordService
	search  *mockSearchService
	health  *mockHealth
}

func newTestServer() (*Server, *testDeps) {
	d := &testDeps{
		indexes: &mockIndexService{},
		records: &mockRecordService{},
		search: &mockSearchService{respond: func(state.State) ([]response.Response, error) {
			return nil, nil
		}},
		health: &mockHealth{report: health.Report{
			Status: health.Healthy,
			Checks: map[string]health.CheckResult{"database": health.CheckOK},
		}},
	}
	s := NewServer(d.indexes, d.records, d.search, d.health,
		SearchLimits{DefaultMaxValuesPerFacet: 10, MaxValuesPerFacet: 100}, nil)
	return s, d
}

func productsIndex() domidx.Index {
	return domidx.Reconstruct("products", []field.Field{
		field.Reconstruct("brand", field.Tag),
		field.Reconstruct("price", field.Numeric),
	}, 1700000000000, 1)
}

// brandResponses answers a state with brand as disjunctive facet:
// the main query sees only refined brands, the fan-out sees all of them.
func brandResponses(st state.State) ([]response.Response, error) {
	main := response.Response{
		Hits:        []json.RawMessage{json.RawMessage(`{"objectID":"p1","brand":"Apple"}`)},
		NbHits:      3,
		NbPages:     1,
		HitsPerPage: st.HitsPerPage(),
		Facets:      map[string]map[string]int{"brand": {"Apple": 3}},
		FacetsStats: map[string]response.Stats{"price": {Min: 10, Max: 900, Avg: 300, Sum: 900}},
	}
	out := []response.Response{main}
	for range len(st.Queries()) - 1 {
		out = append(out, response.Response{
			NbHits: 8,
			Facets: map[string]map[string]int{"brand": {"Apple": 3, "Samsung": 5}},
		})
	}
	return out, nil
}

package facetdex

import (
	"context"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	recordsuc "github.com/kailas-cloud/facetdex/internal/usecase/records"
)

// --- indexUseCase mock ---

type mockIndexUC struct {
	createFn      func(ctx context.Context, name string, fields []field.Field, o *response.FacetOrdering) (domidx.Index, error)
	getFn         func(ctx context.Context, name string) (domidx.Index, error)
	listFn        func(ctx context.Context) ([]domidx.Index, error)
	deleteFn      func(ctx context.Context, name string) error
	setOrderingFn func(ctx context.Context, name string, o *response.FacetOrdering) (domidx.Index, error)
	statsFn       func(ctx context.Context, name string) (domidx.Stats, error)
}

func (m *mockIndexUC) Create(
	ctx context.Context, name string, fields []field.Field, o *response.FacetOrdering,
) (domidx.Index, error) {
	return m.createFn(ctx, name, fields, o)
}

func (m *mockIndexUC) Get(ctx context.Context, name string) (domidx.Index, error) {
	return m.getFn(ctx, name)
}

func (m *mockIndexUC) List(ctx context.Context) ([]domidx.Index, error) {
	return m.listFn(ctx)
}

func (m *mockIndexUC) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

func (m *mockIndexUC) SetFacetOrdering(
	ctx context.Context, name string, o *response.FacetOrdering,
) (domidx.Index, error) {
	return m.setOrderingFn(ctx, name, o)
}

func (m *mockIndexUC) Stats(ctx context.Context, name string) (domidx.Stats, error) {
	return m.statsFn(ctx, name)
}

// --- recordUseCase mock ---

type mockRecordUC struct {
	upsertFn      func(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error)
	upsertBatchFn func(ctx context.Context, index string, items []map[string]any) ([]recordsuc.ItemResult, error)
	getFn         func(ctx context.Context, index, id string) (domrec.Record, error)
	deleteFn      func(ctx context.Context, index, id string) error
}

func (m *mockRecordUC) Upsert(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error) {
	return m.upsertFn(ctx, index, attrs)
}

func (m *mockRecordUC) UpsertBatch(
	ctx context.Context, index string, items []map[string]any,
) ([]recordsuc.ItemResult, error) {
	return m.upsertBatchFn(ctx, index, items)
}

func (m *mockRecordUC) Get(ctx context.Context, index, id string) (domrec.Record, error) {
	return m.getFn(ctx, index, id)
}

func (m *mockRecordUC) Delete(ctx context.Context, index, id string) error {
	return m.deleteFn(ctx, index, id)
}

// --- searchUseCase mock ---

// mockSearchUC merges canned backend responses with the searched state.
type mockSearchUC struct {
	respond func(st state.State) ([]response.Response, error)
	got     state.State
}

func (m *mockSearchUC) Search(_ context.Context, st state.State) (*results.Results, error) {
	m.got = st
	resp, err := m.respond(st)
	if err != nil {
		return nil, err
	}
	return results.Merge(st, resp)
}

func (m *mockSearchUC) Refine(ctx context.Context, st state.State, ops []state.Operation) (*results.Results, error) {
	next, err := st.ApplyAll(ops)
	if err != nil {
		return nil, err
	}
	return m.Search(ctx, next)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- pinger mock ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newTestClient(idx *mockIndexUC, rec *mockRecordUC, search *mockSearchUC) *Client {
	return &Client{
		indexSvc:  idx,
		recordSvc: rec,
		searchSvc: search,
		healthSvc: &mockHealthUC{},
		pinger:    &mockPinger{},
	}
}

func productsIndex() domidx.Index {
	return domidx.Reconstruct("products", []field.Field{
		field.Reconstruct("brand", field.Tag),
		field.Reconstruct("colors", field.Tag),
		field.Reconstruct("price", field.Numeric),
		field.Reconstruct("name", field.Text),
	}, 1700000000, 1)
}

package facetdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
)

// IndexService manages indexes.
type IndexService struct {
	svc indexUseCase
	obs *observer
}

// Create creates a new index.
func (s *IndexService) Create(
	ctx context.Context, name string, opts ...IndexOption,
) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.create", name, start, err) }()

	cfg := &indexConfig{}
	for _, o := range opts {
		o.applyIndex(cfg)
	}

	fields, err := toInternalFields(cfg.fields)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("create index: %w", err)
	}

	idx, err := s.svc.Create(ctx, name, fields, cfg.ordering)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("create index: %w", err)
	}
	return fromInternalIndex(idx), nil
}

// Ensure creates an index if it does not exist.
// If it already exists, returns its info unchanged.
func (s *IndexService) Ensure(
	ctx context.Context, name string, opts ...IndexOption,
) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.ensure", name, start, err) }()

	cfg := &indexConfig{}
	for _, o := range opts {
		o.applyIndex(cfg)
	}

	fields, err := toInternalFields(cfg.fields)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("ensure index: %w", err)
	}

	idx, err := s.svc.Create(ctx, name, fields, cfg.ordering)
	if err == nil {
		return fromInternalIndex(idx), nil
	}
	if !errors.Is(err, domain.ErrIndexAlreadyExists) {
		return IndexInfo{}, fmt.Errorf("ensure index: %w", err)
	}

	existing, err := s.svc.Get(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("ensure index: %w", err)
	}
	return fromInternalIndex(existing), nil
}

// Get retrieves index metadata by name.
func (s *IndexService) Get(ctx context.Context, name string) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.get", name, start, err) }()

	idx, err := s.svc.Get(ctx, name)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("get index: %w", err)
	}
	return fromInternalIndex(idx), nil
}

// List returns all indexes sorted by name.
func (s *IndexService) List(ctx context.Context) (_ []IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.list", "", start, err) }()

	idxs, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	out := make([]IndexInfo, len(idxs))
	for i, idx := range idxs {
		out[i] = fromInternalIndex(idx)
	}
	return out, nil
}

// Delete removes an index. Its records stay in Redis.
func (s *IndexService) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.delete", name, start, err) }()

	if err = s.svc.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// SetFacetOrdering replaces the facet ordering hints; nil clears them.
func (s *IndexService) SetFacetOrdering(
	ctx context.Context, name string, o *FacetOrdering,
) (_ IndexInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.set_facet_ordering", name, start, err) }()

	idx, err := s.svc.SetFacetOrdering(ctx, name, o)
	if err != nil {
		return IndexInfo{}, fmt.Errorf("set facet ordering: %w", err)
	}
	return fromInternalIndex(idx), nil
}

// Stats reports how many records the backend has indexed.
func (s *IndexService) Stats(ctx context.Context, name string) (_ IndexStats, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index.stats", name, start, err) }()

	st, err := s.svc.Stats(ctx, name)
	if err != nil {
		return IndexStats{}, fmt.Errorf("index stats: %w", err)
	}
	return IndexStats{Entries: st.Entries, Indexing: st.Indexing}, nil
}

func toInternalFields(fields []FieldInfo) ([]field.Field, error) {
	out := make([]field.Field, len(fields))
	for i, f := range fields {
		var err error
		out[i], err = field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w: %w", f.Name, domain.ErrInvalidRequest, err)
		}
	}
	return out, nil
}

func fromInternalIndex(idx domidx.Index) IndexInfo {
	fields := make([]FieldInfo, len(idx.Fields()))
	for i, f := range idx.Fields() {
		fields[i] = FieldInfo{Name: f.Name(), Type: FieldType(f.FieldType())}
	}
	return IndexInfo{
		Name:          idx.Name(),
		Fields:        fields,
		FacetOrdering: idx.FacetOrdering(),
		Revision:      idx.Revision(),
		CreatedAt:     idx.CreatedAt(),
	}
}

package index

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Service handles index CRUD operations.
type Service struct {
	repo Repository
}

// New creates an index service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new index.
func (s *Service) Create(
	ctx context.Context, name string, fields []field.Field, ordering *response.FacetOrdering,
) (domidx.Index, error) {
	idx, err := domidx.New(name, fields)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("validate index: %w: %w", domain.ErrInvalidRequest, err)
	}
	if ordering != nil {
		idx = idx.WithFacetOrdering(ordering)
	}

	if err := s.repo.Create(ctx, idx); err != nil {
		return domidx.Index{}, fmt.Errorf("create index: %w", err)
	}

	return idx, nil
}

// Get retrieves an index by name.
func (s *Service) Get(ctx context.Context, name string) (domidx.Index, error) {
	idx, err := s.repo.Get(ctx, name)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("get index: %w", err)
	}
	return idx, nil
}

// List returns all indexes.
func (s *Service) List(ctx context.Context) ([]domidx.Index, error) {
	idxs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return idxs, nil
}

// Delete removes an index and its search structure. Records are kept.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	return nil
}

// SetFacetOrdering replaces the facet ordering hints returned with every
// search response of the index.
func (s *Service) SetFacetOrdering(
	ctx context.Context, name string, ordering *response.FacetOrdering,
) (domidx.Index, error) {
	idx, err := s.repo.UpdateFacetOrdering(ctx, name, ordering)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("update facet ordering: %w", err)
	}
	return idx, nil
}

// Stats reports how many records the backend has indexed for name and
// whether it is still scanning records stored before the index.
func (s *Service) Stats(ctx context.Context, name string) (domidx.Stats, error) {
	idx, err := s.repo.Get(ctx, name)
	if err != nil {
		return domidx.Stats{}, fmt.Errorf("get index: %w", err)
	}
	st, err := s.repo.Stats(ctx, idx)
	if err != nil {
		return domidx.Stats{}, fmt.Errorf("index stats: %w", err)
	}
	return st, nil
}

package records

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
)

// MaxBatchSize is the maximum number of records per batch request.
const MaxBatchSize = 1000

// ItemResult is the outcome of one record of a batch.
type ItemResult struct {
	ID  string
	Err error
}

// OK reports whether the record was stored.
func (r ItemResult) OK() bool { return r.Err == nil }

// Service handles record writes and lookups.
type Service struct {
	repo         Repository
	indexes      IndexReader
	maxBatchSize int
}

// New creates a record service.
func New(repo Repository, indexes IndexReader) *Service {
	return &Service{repo: repo, indexes: indexes, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert validates attrs against the index schema and stores the record,
// replacing any previous version with the same objectID.
func (s *Service) Upsert(ctx context.Context, indexName string, attrs map[string]any) (domrec.Record, error) {
	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get index: %w", err)
	}

	rec, err := domrec.FromAttributes(idx, attrs)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	if err := s.repo.Save(ctx, idx, []domrec.Record{rec}); err != nil {
		return domrec.Record{}, fmt.Errorf("save record: %w", err)
	}
	return rec, nil
}

// UpsertBatch stores every valid item in a single round-trip and reports
// per-item outcomes. Invalid items do not block valid ones.
func (s *Service) UpsertBatch(
	ctx context.Context, indexName string, items []map[string]any,
) ([]ItemResult, error) {
	if len(items) > s.maxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds %d: %w", len(items), s.maxBatchSize, domain.ErrInvalidRequest)
	}

	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	results := make([]ItemResult, len(items))
	valid := make([]domrec.Record, 0, len(items))
	pos := make([]int, 0, len(items))

	for i, attrs := range items {
		id, _ := attrs[domrec.IDAttribute].(string)
		results[i].ID = id

		rec, err := domrec.FromAttributes(idx, attrs)
		if err != nil {
			results[i].Err = fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
			continue
		}
		valid = append(valid, rec)
		pos = append(pos, i)
	}

	if err := s.repo.Save(ctx, idx, valid); err != nil {
		for _, i := range pos {
			results[i].Err = fmt.Errorf("save record: %w", err)
		}
	}

	return results, nil
}

// Get retrieves a record by index and objectID.
func (s *Service) Get(ctx context.Context, indexName, id string) (domrec.Record, error) {
	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get index: %w", err)
	}

	rec, err := s.repo.Get(ctx, idx, id)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, indexName, id string) error {
	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return fmt.Errorf("get index: %w", err)
	}

	if err := s.repo.Delete(ctx, idx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Index returns the schema records of indexName are validated against.
func (s *Service) Index(ctx context.Context, indexName string) (domidx.Index, error) {
	idx, err := s.indexes.Get(ctx, indexName)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("get index: %w", err)
	}
	return idx, nil
}

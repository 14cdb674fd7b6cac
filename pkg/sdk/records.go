package facetdex

import (
	"context"
	"fmt"
	"time"
)

// RecordService manages records within a single index.
type RecordService struct {
	index string
	svc   recordUseCase
	obs   *observer
}

// Upsert validates and stores a record, replacing any previous version.
// attrs must carry a string "objectID".
func (s *RecordService) Upsert(ctx context.Context, attrs map[string]any) (_ map[string]any, err error) {
	start := time.Now()
	defer func() { s.obs.observe("record.upsert", s.index, start, err) }()

	rec, err := s.svc.Upsert(ctx, s.index, attrs)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}
	return rec.Attributes(), nil
}

// UpsertBatch stores records in one round-trip. Invalid records are
// reported per item and do not block valid ones.
func (s *RecordService) UpsertBatch(ctx context.Context, items []map[string]any) (_ []BatchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("record.upsert_batch", s.index, start, err) }()

	res, err := s.svc.UpsertBatch(ctx, s.index, items)
	if err != nil {
		return nil, fmt.Errorf("batch upsert: %w", err)
	}
	out := make([]BatchResult, len(res))
	for i, r := range res {
		out[i] = BatchResult{ID: r.ID, OK: r.OK(), Err: r.Err}
	}
	return out, nil
}

// Get retrieves a record by objectID.
func (s *RecordService) Get(ctx context.Context, id string) (_ map[string]any, err error) {
	start := time.Now()
	defer func() { s.obs.observe("record.get", s.index, start, err) }()

	rec, err := s.svc.Get(ctx, s.index, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec.Attributes(), nil
}

// Delete removes a record by objectID.
func (s *RecordService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("record.delete", s.index, start, err) }()

	if err = s.svc.Delete(ctx, s.index, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

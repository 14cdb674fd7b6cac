package facetdex

import (
	"context"
	"fmt"
	"time"
)

// SearchService runs faceted search rounds.
type SearchService struct {
	svc searchUseCase
	obs *observer
}

// Search runs the queries derived from st and merges the answers.
func (s *SearchService) Search(ctx context.Context, st State) (_ *Results, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search", st.Index(), start, err) }()

	res, err := s.svc.Search(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return res, nil
}

// Refine applies ops to st and searches with the resulting state, which is
// available as Results.State. A rejected operation sends no query.
func (s *SearchService) Refine(ctx context.Context, st State, ops ...Operation) (_ *Results, err error) {
	start := time.Now()
	defer func() { s.obs.observe("refine", st.Index(), start, err) }()

	res, err := s.svc.Refine(ctx, st, ops)
	if err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	return res, nil
}

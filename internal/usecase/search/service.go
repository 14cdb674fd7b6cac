package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// DefaultPoolSize bounds concurrent backend queries across all rounds.
const DefaultPoolSize = 64

// Service runs search rounds: it derives the query descriptors of a state,
// sends them to the backend concurrently and merges the answers.
type Service struct {
	backend Backend
	indexes IndexReader
	pool    *ants.Pool
	logger  *zap.Logger
}

// New creates a search service with a worker pool of poolSize goroutines.
func New(backend Backend, indexes IndexReader, poolSize int, logger *zap.Logger) (*Service, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{backend: backend, indexes: indexes, pool: pool, logger: logger}, nil
}

// Release stops the worker pool. The service must not be used afterwards.
func (s *Service) Release() {
	s.pool.Release()
}

// Search runs one round for st.
func (s *Service) Search(ctx context.Context, st state.State) (*results.Results, error) {
	start := time.Now()

	res, err := s.search(ctx, st)

	status := "ok"
	if err != nil {
		status = "error"
		s.logger.Warn("Search round failed",
			zap.String("index", st.Index()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	metrics.SearchRoundsTotal.WithLabelValues(st.Index(), status).Inc()
	metrics.SearchRoundDuration.WithLabelValues(st.Index()).Observe(time.Since(start).Seconds())

	return res, err
}

// Refine applies ops to st in order and runs a round for the result.
// Nothing is sent to the backend when an operation is rejected.
func (s *Service) Refine(ctx context.Context, st state.State, ops []state.Operation) (*results.Results, error) {
	next, err := st.ApplyAll(ops)
	if err != nil {
		return nil, fmt.Errorf("apply operations: %w", err)
	}
	return s.Search(ctx, next)
}

func (s *Service) search(ctx context.Context, st state.State) (*results.Results, error) {
	idx, err := s.indexes.Get(ctx, st.Index())
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}

	queries := st.Queries()
	metrics.SearchQueriesPerRound.Observe(float64(len(queries)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	responses := make([]response.Response, len(queries))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, d := range queries {
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			resp, err := s.backend.Search(ctx, idx, d)
			if err != nil {
				fail(fmt.Errorf("query %d: %w", i, backendError(err)))
				return
			}
			responses[i] = *resp
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit query %d: %w", i, submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	res, err := results.Merge(st, responses)
	if err != nil {
		return nil, fmt.Errorf("merge responses: %w", err)
	}
	return res, nil
}

// backendError tags storage failures as ErrBackendUnavailable; request
// errors the backend detected pass through unchanged.
func backendError(err error) error {
	if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrIndexNotFound) ||
		errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}

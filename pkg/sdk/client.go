package facetdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
	indexrepo "github.com/kailas-cloud/facetdex/internal/repository/index"
	recordrepo "github.com/kailas-cloud/facetdex/internal/repository/record"
	"github.com/kailas-cloud/facetdex/internal/repository/respcache"
	searchrepo "github.com/kailas-cloud/facetdex/internal/repository/search"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/facetdex/internal/usecase/index"
	recordsuc "github.com/kailas-cloud/facetdex/internal/usecase/records"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, replaced by mocks in tests.
type indexUseCase interface {
	Create(ctx context.Context, name string, fields []field.Field, o *response.FacetOrdering) (domidx.Index, error)
	Get(ctx context.Context, name string) (domidx.Index, error)
	List(ctx context.Context) ([]domidx.Index, error)
	Delete(ctx context.Context, name string) error
	SetFacetOrdering(ctx context.Context, name string, o *response.FacetOrdering) (domidx.Index, error)
	Stats(ctx context.Context, name string) (domidx.Stats, error)
}

type recordUseCase interface {
	Upsert(ctx context.Context, index string, attrs map[string]any) (domrec.Record, error)
	UpsertBatch(ctx context.Context, index string, items []map[string]any) ([]recordsuc.ItemResult, error)
	Get(ctx context.Context, index, id string) (domrec.Record, error)
	Delete(ctx context.Context, index, id string) error
}

type searchUseCase interface {
	Search(ctx context.Context, st state.State) (*results.Results, error)
	Refine(ctx context.Context, st state.State, ops []state.Operation) (*results.Results, error)
}

// Client is the facetdex SDK entry point.
type Client struct {
	indexSvc  indexUseCase
	recordSvc recordUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	pinger    healthuc.Pinger
	obs       *observer
	closers   []func()
}

// New creates a Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("facetdex: database address required (use WithRedis or WithCluster)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		ClientName: "facetdex-sdk",
		Addrs:      cfg.addrs,
		Username:   cfg.username,
		Password:   cfg.password,
		DB:         cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("facetdex: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("facetdex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	indexRepo := indexrepo.New(store)
	recordRepo := recordrepo.New(store)

	c := &Client{obs: obs, pinger: store}

	var backend searchuc.Backend = searchrepo.New(store)
	if cfg.cacheTTL > 0 {
		cacheTotal, err := newCacheCounter(cfg.metricsReg)
		if err != nil {
			return nil, err
		}
		cached, err := respcache.New(backend, store, cfg.cacheTTL, cacheTotal, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("facetdex: response cache: %w", err)
		}
		c.closers = append(c.closers, cached.Close)
		backend = cached
	}

	search, err := searchuc.New(backend, indexRepo, cfg.poolSize, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("facetdex: search service: %w", err)
	}
	c.closers = append(c.closers, search.Release, store.Close)

	records := recordsuc.New(recordRepo, indexRepo)
	if cfg.maxBatchSize > 0 {
		records = records.WithMaxBatchSize(cfg.maxBatchSize)
	}

	c.indexSvc = indexuc.New(indexRepo)
	c.recordSvc = records
	c.searchSvc = search
	c.healthSvc = healthuc.New(store)
	return c, nil
}

// newCacheCounter returns the cache hit/miss counter, registered on reg
// when metrics are enabled.
func newCacheCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facetdex",
		Subsystem: "sdk",
		Name:      "response_cache_total",
		Help:      "Response cache lookups by result (hit/miss/skip).",
	}, []string{"result"})
	if reg == nil {
		return cv, nil
	}
	if err := registerOrReuse(reg, &cv); err != nil {
		return nil, err
	}
	return cv, nil
}

// Close releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", "", start, err) }()

	if err = c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Indexes returns the index management service.
func (c *Client) Indexes() *IndexService {
	return &IndexService{svc: c.indexSvc, obs: c.obs}
}

// Records returns the record service for a given index.
func (c *Client) Records(index string) *RecordService {
	return &RecordService{index: index, svc: c.recordSvc, obs: c.obs}
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return &SearchService{svc: c.searchSvc, obs: c.obs}
}

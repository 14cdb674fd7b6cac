package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/config"
	dbBadger "github.com/kailas-cloud/facetdex/internal/db/badger"
	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/facetdex/internal/logger"
	"github.com/kailas-cloud/facetdex/internal/metrics"
	indexrepo "github.com/kailas-cloud/facetdex/internal/repository/index"
	recordrepo "github.com/kailas-cloud/facetdex/internal/repository/record"
	"github.com/kailas-cloud/facetdex/internal/repository/respcache"
	searchrepo "github.com/kailas-cloud/facetdex/internal/repository/search"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	indexuc "github.com/kailas-cloud/facetdex/internal/usecase/index"
	recordsuc "github.com/kailas-cloud/facetdex/internal/usecase/records"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

// app is the wired object graph shared by the server and the CLI commands.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	indexes *indexuc.Service
	records *recordsuc.Service
	search  *searchuc.Service
	health  *healthuc.Service

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newApp loads configuration, connects to Redis and wires every service.
// loggerEnv overrides the logger flavor, e.g. "cli" for quiet commands.
func newApp(ctx context.Context, env, loggerEnv string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if loggerEnv == "" {
		loggerEnv = env
	} else {
		level = ""
	}
	logger, err := logpkg.NewLogger(loggerEnv, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))

	metrics.RegisterSearchMetrics()

	indexRepo := indexrepo.New(store)
	recordRepo := recordrepo.New(store)

	backend, cachePinger, err := a.buildBackend(store)
	if err != nil {
		return err
	}

	a.indexes = indexuc.New(indexRepo)
	a.records = recordsuc.New(recordRepo, indexRepo).WithMaxBatchSize(cfg.Records.MaxBatchSize)
	a.search, err = searchuc.New(backend, indexRepo, cfg.Search.PoolSize, a.logger)
	if err != nil {
		return fmt.Errorf("create search service: %w", err)
	}
	a.closers = append(a.closers, a.search.Release)

	a.health = healthuc.New(store,
		healthuc.WithComponent("cache", cachePinger),
		healthuc.WithTimeout(a.cfg.Health.Timeout),
	)
	return nil
}

// buildBackend decorates the Redis search repository with the configured
// response cache. The returned pinger is an untyped nil when caching is off.
func (a *app) buildBackend(store *dbRedis.Store) (searchuc.Backend, healthuc.Pinger, error) {
	cfg := a.cfg.Cache
	base := searchrepo.New(store)
	ttl := time.Duration(cfg.TTLSec) * time.Second

	switch cfg.Backend {
	case config.CacheRedis:
		cached, err := respcache.New(base, store, ttl, metrics.ResponseCacheTotal, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create response cache: %w", err)
		}
		a.closers = append(a.closers, cached.Close)
		a.logger.Info("Response cache enabled", zap.String("backend", cfg.Backend), zap.Duration("ttl", ttl))
		return cached, nil, nil

	case config.CacheBadger:
		kv, err := dbBadger.Open(dbBadger.Config{Path: cfg.Path, InMemory: cfg.InMemory}, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger cache: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		cached, err := respcache.New(base, kv, ttl, metrics.ResponseCacheTotal, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create response cache: %w", err)
		}
		a.closers = append(a.closers, cached.Close)
		a.logger.Info("Response cache enabled",
			zap.String("backend", cfg.Backend),
			zap.String("path", cfg.Path),
			zap.Bool("in_memory", cfg.InMemory),
			zap.Duration("ttl", ttl),
		)
		return cached, kv, nil

	default:
		return base, nil, nil
	}
}

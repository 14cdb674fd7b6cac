package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/metrics"
	chiTransport "github.com/kailas-cloud/facetdex/internal/transport/chi"
	"github.com/kailas-cloud/facetdex/internal/version"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root.env)
		},
	}
}

func runServe(parent context.Context, env string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	logger := a.logger
	logger.Info("Starting facetdex API server",
		zap.String("version", version.Resolved()),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	server := chiTransport.NewServer(a.indexes, a.records, a.search, a.health,
		chiTransport.SearchLimits{
			DefaultMaxValuesPerFacet: cfg.Search.DefaultMaxValuesPerFacet,
			MaxValuesPerFacet:        cfg.Search.MaxValuesPerFacet,
		},
		metrics.FacetResolutionsTotal,
	)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        chiTransport.Keys{Admin: cfg.Auth.APIKeys, Search: cfg.Auth.SearchAPIKeys},
		AllowedOrigins: cfg.HTTP.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.HTTP.RateLimit.RequestsPerSec,
		RateLimitBurst: cfg.HTTP.RateLimit.Burst,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

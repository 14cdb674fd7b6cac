package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for a Redis store. Several addresses
// are treated as cluster seeds.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ClientName is sent with CLIENT SETNAME; defaults to "facetdex".
	ClientName string
}

// Store implements db.Store via rueidis for Redis 8+ with the Query Engine.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	if len(cfg.Addrs) > 1 && cfg.DB != 0 {
		return nil, fmt.Errorf("db %d: cluster mode only supports db 0", cfg.DB)
	}
	name := cfg.ClientName
	if name == "" {
		name = "facetdex"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		ClientName:   name,
		SelectDB:     cfg.DB,
		DisableCache: true,
		// FT.SEARCH and FT.AGGREGATE replies are parsed as RESP2 arrays.
		AlwaysRESP2: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls until the store responds to PING or timeout expires,
// then checks once that the search module is loaded. A server without it
// answers PING but rejects every FT command, so it is reported as
// db.ErrNoSearchModule rather than retried.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err != nil {
				continue
			}
			return s.checkSearchModule(ctx)
		}
	}
}

func (s *Store) checkSearchModule(ctx context.Context) error {
	err := s.do(ctx, s.b().Arbitrary(db.OpListIndexes).Build()).Error()
	if err == nil {
		return nil
	}
	if isRedisErr(err, "unknown command") {
		return &db.Error{Op: db.OpListIndexes, Err: db.ErrNoSearchModule}
	}
	return &db.Error{Op: db.OpListIndexes, Err: err}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

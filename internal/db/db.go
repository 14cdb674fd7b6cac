package db

import (
	"context"
	"time"
)

// Store is everything the Redis backend offers. Consumers depend on the
// narrow interfaces below, never on Store itself.
//
//nolint:interfacebloat // aggregate of the narrow interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one hash write: a key and the complete field set stored at it.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds index metadata and records as hashes.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HReplaceMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore holds expiring blobs; the response cache is its only consumer.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexInfo(ctx context.Context, name string) (*IndexInfo, error)
}

// Searcher runs hit queries and facet-count aggregations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
	Aggregate(ctx context.Context, q *AggregateQuery) (*AggregateResult, error)
}

package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

var cacheKeyPrefix = domain.KeyPrefix + "cache:"

// DefaultTTL bounds how stale a cached response may get after record writes.
const DefaultTTL = 30 * time.Second

// backend answers a single query descriptor.
type backend interface {
	Search(ctx context.Context, idx domidx.Index, d query.Descriptor) (*response.Response, error)
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedBackend caches backend responses, zstd-compressed, in a key-value store.
type CachedBackend struct {
	inner      backend
	store      store
	ttl        time.Duration
	enc        *zstd.Encoder
	dec        *zstd.Decoder
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"skip"), passed explicitly.
func New(
	inner backend,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedBackend, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &CachedBackend{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		enc:        enc,
		dec:        dec,
		cacheTotal: cacheTotal,
		logger:     logger,
	}, nil
}

// Search returns a cached response or calls the inner backend.
// Queries asking for a query ID are never cached: every answer needs a fresh one.
func (c *CachedBackend) Search(ctx context.Context, idx domidx.Index, d query.Descriptor) (*response.Response, error) {
	if d.ClickAnalytics && !d.Fanout {
		c.incCache("skip")
		return c.inner.Search(ctx, idx, d)
	}

	key, err := cacheKey(idx, d)
	if err != nil {
		return nil, err
	}

	if resp, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return resp, nil
	}

	c.incCache("miss")

	resp, err := c.inner.Search(ctx, idx, d)
	if err != nil {
		return nil, err
	}

	c.putToCache(ctx, key, resp)
	return resp, nil
}

// Close releases the zstd decoder goroutines.
func (c *CachedBackend) Close() {
	c.dec.Close()
}

func (c *CachedBackend) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey changes whenever the index schema is revised.
func cacheKey(idx domidx.Index, d query.Descriptor) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal descriptor: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(idx.Name()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(idx.Revision())))
	h.Write([]byte{0})
	h.Write(b)
	return cacheKeyPrefix + idx.Name() + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

func (c *CachedBackend) getFromCache(ctx context.Context, key string) (*response.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	raw, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		c.logger.Warn("Failed to decompress cached response", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	var resp response.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &resp, true
}

func (c *CachedBackend) putToCache(ctx context.Context, key string, resp *response.Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to marshal response", zap.String("key", key), zap.Error(err))
		return
	}
	data := c.enc.EncodeAll(raw, nil)
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

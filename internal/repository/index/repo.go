package index

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// store is the consumer interface for indexes (ISP).
//
//nolint:interfacebloat // index repo needs hash + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
}

// Repo implements usecase/index.Repository.
type Repo struct {
	store store
}

// New creates an index repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores an index: HSET metadata then FT.CREATE.
// On FT.CREATE failure, rolls back the HSET via DEL.
func (r *Repo) Create(ctx context.Context, idx domidx.Index) error {
	key := metaKey(idx.Name())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrIndexAlreadyExists
	}

	def, err := buildIndex(idx)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	hashData, err := indexToHash(idx)
	if err != nil {
		return err
	}

	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return fmt.Errorf("hset index %s: %w", idx.Name(), err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		_, cleanupErr := r.store.Del(ctx, key)
		if errors.Is(err, db.ErrIndexExists) {
			err = domain.ErrIndexAlreadyExists
		}
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Get retrieves an index by name.
func (r *Repo) Get(ctx context.Context, name string) (domidx.Index, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domidx.Index{}, fmt.Errorf("hgetall index %s: %w", name, err)
	}
	if len(m) == 0 {
		return domidx.Index{}, domain.ErrIndexNotFound
	}
	return indexFromHash(m)
}

// UpdateFacetOrdering replaces the facet ordering hints of an index and
// revises it. A nil ordering removes the hints.
func (r *Repo) UpdateFacetOrdering(
	ctx context.Context, name string, o *response.FacetOrdering,
) (domidx.Index, error) {
	idx, err := r.Get(ctx, name)
	if err != nil {
		return domidx.Index{}, err
	}
	idx = idx.WithFacetOrdering(o).Revised()

	hashData, err := indexToHash(idx)
	if err != nil {
		return domidx.Index{}, err
	}
	if err := r.store.HSet(ctx, metaKey(name), hashData); err != nil {
		return domidx.Index{}, fmt.Errorf("hset index %s: %w", name, err)
	}
	return idx, nil
}

// List returns all indexes sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domidx.Index, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan indexes: %w", err)
	}
	if len(keys) == 0 {
		return []domidx.Index{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi indexes: %w", err)
	}

	out := make([]domidx.Index, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		idx, err := indexFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse index %s: %w", keys[i], err)
		}
		out = append(out, idx)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt() < out[j].CreatedAt()
	})

	return out, nil
}

// Delete removes an index: backup metadata, DEL hash, FT.DROPINDEX (rollback HSET on error).
// Records are kept; recreating the index reindexes them.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := metaKey(name)

	backup, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall index %s: %w", name, err)
	}
	if len(backup) == 0 {
		return domain.ErrIndexNotFound
	}
	idx, err := indexFromHash(backup)
	if err != nil {
		return err
	}

	if _, err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del index %s: %w", name, err)
	}

	if err := r.store.DropIndex(ctx, idx.StorageName()); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		cleanupErr := r.store.HSet(ctx, key, backup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Stats reads the backend state of a stored index. Metadata without a
// backend index (dropped behind the service's back) reports ErrIndexNotFound.
func (r *Repo) Stats(ctx context.Context, idx domidx.Index) (domidx.Stats, error) {
	info, err := r.store.IndexInfo(ctx, idx.StorageName())
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domidx.Stats{}, fmt.Errorf("backend index %s: %w", idx.StorageName(), domain.ErrIndexNotFound)
		}
		return domidx.Stats{}, fmt.Errorf("index info %s: %w", idx.Name(), err)
	}
	return domidx.Stats{Entries: info.NumDocs, Indexing: info.Indexing}, nil
}

// Key patterns: facetdex:index:{name} (metadata), facetdex:idx:{name} (FT index), facetdex:{name}:{id} (records).

func metaKey(name string) string {
	return fmt.Sprintf("%sindex:%s", domain.KeyPrefix, name)
}

package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
)

// store is the consumer interface for records (ISP).
type store interface {
	HReplaceMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int64, error)
}

// Repo implements usecase/index.RecordRepository.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save stores records in a single pipelined round-trip. A record replaces
// its previous version, so attributes the new version drops are gone. The
// hash also carries the objectID, which keeps attribute-less records stored.
func (r *Repo) Save(ctx context.Context, idx domidx.Index, recs []domrec.Record) error {
	if len(recs) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		fields := ToHash(rec)
		fields[domrec.IDAttribute] = rec.ID()
		items[i] = db.HashSetItem{Key: idx.RecordKey(rec.ID()), Fields: fields}
	}
	if err := r.store.HReplaceMulti(ctx, items); err != nil {
		return fmt.Errorf("store records %s: %w", idx.Name(), err)
	}
	return nil
}

// Get returns a record by ID.
func (r *Repo) Get(ctx context.Context, idx domidx.Index, id string) (domrec.Record, error) {
	key := idx.RecordKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domrec.Record{}, domain.ErrRecordNotFound
	}
	return FromHash(idx, id, m), nil
}

// Delete removes a record.
func (r *Repo) Delete(ctx context.Context, idx domidx.Index, id string) error {
	key := idx.RecordKey(id)
	n, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// IDFromKey strips the record prefix of idx from a storage key.
func IDFromKey(idx domidx.Index, key string) string {
	return strings.TrimPrefix(key, idx.RecordPrefix())
}

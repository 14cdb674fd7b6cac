package records

import (
	"context"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
)

// Repository defines the storage contract for records.
type Repository interface {
	Save(ctx context.Context, idx domidx.Index, recs []domrec.Record) error
	Get(ctx context.Context, idx domidx.Index, id string) (domrec.Record, error)
	Delete(ctx context.Context, idx domidx.Index, id string) error
}

// IndexReader reads indexes for existence and schema validation.
type IndexReader interface {
	Get(ctx context.Context, name string) (domidx.Index, error)
}

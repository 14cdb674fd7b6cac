package search

import (
	"context"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Backend answers one query descriptor.
type Backend interface {
	Search(ctx context.Context, idx domidx.Index, d query.Descriptor) (*response.Response, error)
}

// IndexReader reads index definitions.
type IndexReader interface {
	Get(ctx context.Context, name string) (domidx.Index, error)
}

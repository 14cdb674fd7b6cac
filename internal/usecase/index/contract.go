package index

import (
	"context"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Repository defines the storage contract for indexes.
type Repository interface {
	Create(ctx context.Context, idx domidx.Index) error
	Get(ctx context.Context, name string) (domidx.Index, error)
	List(ctx context.Context) ([]domidx.Index, error)
	Delete(ctx context.Context, name string) error
	UpdateFacetOrdering(ctx context.Context, name string, o *response.FacetOrdering) (domidx.Index, error)
	Stats(ctx context.Context, idx domidx.Index) (domidx.Stats, error)
}

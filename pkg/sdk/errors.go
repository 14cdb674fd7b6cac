package facetdex

import "github.com/kailas-cloud/facetdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration      = domain.ErrConfiguration
	ErrResponseCount      = domain.ErrResponseCount
	ErrBackendUnavailable = domain.ErrBackendUnavailable
	ErrInvalidRequest     = domain.ErrInvalidRequest
	ErrIndexNotFound      = domain.ErrIndexNotFound
	ErrIndexAlreadyExists = domain.ErrIndexAlreadyExists
	ErrRecordNotFound     = domain.ErrRecordNotFound
)

// ConfigurationError carries the facet a rejected operation referred to.
type ConfigurationError = domain.ConfigurationError

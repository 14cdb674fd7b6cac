package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a request against an undeclared facet or a facet
	// used with the wrong classification. It is a programming error in the caller.
	ErrConfiguration = errors.New("configuration error")
	// ErrResponseCount signals that the number of backend responses does not
	// match the number of query descriptors derived from the state.
	ErrResponseCount = errors.New("response count mismatch")
	// ErrBackendUnavailable signals a search backend failure.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrInvalidRequest signals a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrIndexNotFound signals a request against an index that was never created.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexAlreadyExists signals a duplicate index creation.
	ErrIndexAlreadyExists = errors.New("index already exists")
	// ErrRecordNotFound signals a lookup of a missing record.
	ErrRecordNotFound = errors.New("record not found")
)

// ConfigurationError wraps ErrConfiguration with the offending facet.
type ConfigurationError struct {
	Facet  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Facet == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: facet %q: %s", ErrConfiguration.Error(), e.Facet, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error for a facet.
func NewConfigurationError(facet, format string, args ...any) error {
	return &ConfigurationError{Facet: facet, Reason: fmt.Sprintf(format, args...)}
}

package facetdex

import (
	"context"
	"encoding/json"
	"fmt"
)

// TypedIndex is a generic, schema-first index backed by a facetdex Client.
// Schema is inferred from T's struct tags at construction time.
type TypedIndex[T any] struct {
	name   string
	client *Client
	meta   *schemaMeta
}

// Page is one page of typed search hits with the merged results.
type Page[T any] struct {
	Items   []T
	Results *Results
}

// NewIndex creates a typed index handle for the given index name.
// T must be a struct with facetdex tags. Schema is parsed once and cached.
func NewIndex[T any](client *Client, name string) (*TypedIndex[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", name, err)
	}
	return &TypedIndex[T]{name: name, client: client, meta: meta}, nil
}

// Name returns the index name.
func (idx *TypedIndex[T]) Name() string { return idx.name }

// Ensure creates the index if it does not exist (idempotent).
func (idx *TypedIndex[T]) Ensure(ctx context.Context, opts ...IndexOption) error {
	all := append(idx.meta.indexOptions(), opts...)
	if _, err := idx.client.Indexes().Ensure(ctx, idx.name, all...); err != nil {
		return fmt.Errorf("ensure %q: %w", idx.name, err)
	}
	return nil
}

// Upsert creates or replaces a single item.
func (idx *TypedIndex[T]) Upsert(ctx context.Context, item T) error {
	if _, err := idx.client.Records(idx.name).Upsert(ctx, idx.meta.toAttributes(item)); err != nil {
		return err
	}
	return nil
}

// UpsertBatch creates or replaces items in batch.
func (idx *TypedIndex[T]) UpsertBatch(ctx context.Context, items []T) ([]BatchResult, error) {
	attrs := make([]map[string]any, len(items))
	for i, item := range items {
		attrs[i] = idx.meta.toAttributes(item)
	}
	return idx.client.Records(idx.name).UpsertBatch(ctx, attrs)
}

// Get retrieves a typed item by objectID.
func (idx *TypedIndex[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	attrs, err := idx.client.Records(idx.name).Get(ctx, id)
	if err != nil {
		return zero, err
	}
	return idx.decode(attrs)
}

// Delete removes an item by objectID.
func (idx *TypedIndex[T]) Delete(ctx context.Context, id string) error {
	return idx.client.Records(idx.name).Delete(ctx, id)
}

// Search runs st against this index and decodes the hits into T.
// A state built for another index is rejected.
func (idx *TypedIndex[T]) Search(ctx context.Context, st State) (*Page[T], error) {
	if st.Index() != idx.name {
		return nil, fmt.Errorf("search %q: %w: state targets index %q", idx.name, ErrInvalidRequest, st.Index())
	}
	res, err := idx.client.Search().Search(ctx, st)
	if err != nil {
		return nil, err
	}
	return idx.page(res)
}

// Refine applies ops to st and searches with the resulting state.
func (idx *TypedIndex[T]) Refine(ctx context.Context, st State, ops ...Operation) (*Page[T], error) {
	if st.Index() != idx.name {
		return nil, fmt.Errorf("refine %q: %w: state targets index %q", idx.name, ErrInvalidRequest, st.Index())
	}
	res, err := idx.client.Search().Refine(ctx, st, ops...)
	if err != nil {
		return nil, err
	}
	return idx.page(res)
}

func (idx *TypedIndex[T]) page(res *Results) (*Page[T], error) {
	hits := res.Hits()
	items := make([]T, 0, len(hits))
	for i, h := range hits {
		var attrs map[string]any
		if err := json.Unmarshal(h, &attrs); err != nil {
			return nil, fmt.Errorf("decode hit %d: %w", i, err)
		}
		item, err := idx.decode(attrs)
		if err != nil {
			return nil, fmt.Errorf("decode hit %d: %w", i, err)
		}
		items = append(items, item)
	}
	return &Page[T]{Items: items, Results: res}, nil
}

func (idx *TypedIndex[T]) decode(attrs map[string]any) (T, error) {
	var zero T
	v, err := idx.meta.fromAttributes(attrs)
	if err != nil {
		return zero, err
	}
	item, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("facetdex: decoded %T, want %T", v, zero)
	}
	return item, nil
}

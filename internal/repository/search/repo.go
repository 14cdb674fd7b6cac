package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/domain"
	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/repository/record"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error)
}

// Repo implements usecase/search.Backend.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Search runs one query descriptor against the index and answers in the
// backend response format: a page of hits, facet counts and numeric stats.
func (r *Repo) Search(ctx context.Context, idx domidx.Index, d query.Descriptor) (*response.Response, error) {
	start := r.now()

	f, err := buildFilter(idx, d)
	if err != nil {
		return nil, err
	}

	hpp := d.HitsPerPage
	limit := hpp
	if d.Fanout {
		limit = 0
	}
	sr, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName: idx.StorageName(),
		Filter:    f,
		Offset:    d.Page * hpp,
		Limit:     limit,
	})
	if err != nil {
		return nil, wrap(idx, "search", err)
	}

	hits, err := buildHits(idx, sr, d.Fanout)
	if err != nil {
		return nil, err
	}

	resp := &response.Response{
		Hits:        hits,
		NbHits:      sr.Total,
		Page:        d.Page,
		NbPages:     nbPages(sr.Total, hpp),
		HitsPerPage: hpp,
	}

	if err := r.facets(ctx, idx, d, f, resp); err != nil {
		return nil, err
	}

	if ordering := idx.FacetOrdering(); ordering != nil {
		resp.RenderingContent = &response.RenderingContent{FacetOrdering: ordering}
	}
	if d.ClickAnalytics && !d.Fanout {
		resp.QueryID = uuid.NewString()
	}
	resp.ProcessingTimeMS = int(r.now().Sub(start).Milliseconds())

	return resp, nil
}

// facets counts the requested attributes. Numeric attributes are counted
// like tags and also get stats.
func (r *Repo) facets(
	ctx context.Context, idx domidx.Index, d query.Descriptor, f db.Filter, resp *response.Response,
) error {
	var tagFields, statFields []string
	names := make(map[string]string, len(d.Facets))
	for _, attr := range d.Facets {
		fld, ok := idx.FieldByName(attr)
		if !ok && attr != domidx.TagsAttribute {
			continue
		}
		alias := db.FieldAlias(attr)
		if _, dup := names[alias]; dup {
			continue
		}
		names[alias] = attr
		tagFields = append(tagFields, alias)
		if ok && fld.FieldType() == field.Numeric {
			statFields = append(statFields, alias)
		}
	}
	if len(tagFields) == 0 {
		return nil
	}

	ar, err := r.store.Aggregate(ctx, &db.AggregateQuery{
		IndexName:  idx.StorageName(),
		Filter:     f,
		TagFields:  tagFields,
		Separator:  domidx.TagSeparator,
		Limit:      d.MaxValuesPerFacet,
		StatFields: statFields,
	})
	if err != nil {
		return wrap(idx, "aggregate", err)
	}

	exhaustive := true
	resp.Facets = make(map[string]map[string]int, len(ar.Counts))
	for _, c := range ar.Counts {
		resp.Facets[names[c.Field]] = c.Values
		if c.Truncated {
			exhaustive = false
		}
	}
	resp.ExhaustiveFacetsCount = &exhaustive

	for _, s := range ar.Stats {
		if s.Empty {
			continue
		}
		if resp.FacetsStats == nil {
			resp.FacetsStats = make(map[string]response.Stats, len(ar.Stats))
		}
		resp.FacetsStats[names[s.Field]] = response.Stats{Min: s.Min, Max: s.Max, Avg: s.Avg, Sum: s.Sum}
	}
	return nil
}

// buildFilter translates descriptor filters into the storage query model.
func buildFilter(idx domidx.Index, d query.Descriptor) (db.Filter, error) {
	f := db.Filter{Text: d.Query}

	for _, g := range d.FacetFilters {
		group := make([]db.TagCondition, 0, len(g))
		for _, ff := range g {
			if _, ok := idx.FieldByName(ff.Attribute); !ok && ff.Attribute != domidx.TagsAttribute {
				return db.Filter{}, fmt.Errorf("%w: facet filter on undeclared attribute %q",
					domain.ErrInvalidRequest, ff.Attribute)
			}
			group = append(group, db.TagCondition{
				Field:   db.FieldAlias(ff.Attribute),
				Value:   ff.Value,
				Negated: ff.Negated,
			})
		}
		if len(group) > 0 {
			f.Groups = append(f.Groups, group)
		}
	}

	for _, n := range d.NumericFilters {
		if !idx.HasField(n.Attribute, field.Numeric) {
			return db.Filter{}, fmt.Errorf("%w: numeric filter on non-numeric attribute %q",
				domain.ErrInvalidRequest, n.Attribute)
		}
		rc, err := rangeOf(db.FieldAlias(n.Attribute), n.Operator, n.Value)
		if err != nil {
			return db.Filter{}, err
		}
		f.Ranges = append(f.Ranges, rc)
	}

	for _, tag := range d.TagFilters {
		f.Groups = append(f.Groups, []db.TagCondition{{Field: domidx.TagsAttribute, Value: tag}})
	}

	return f, nil
}

func rangeOf(fieldName string, op query.Operator, v float64) (db.RangeCondition, error) {
	rc := db.RangeCondition{Field: fieldName, Min: math.Inf(-1), Max: math.Inf(1)}
	switch op {
	case query.OpEQ:
		rc.Min, rc.Max = v, v
	case query.OpNEQ:
		rc.Min, rc.Max, rc.Negated = v, v, true
	case query.OpGT:
		rc.Min, rc.MinExclusive = v, true
	case query.OpGTE:
		rc.Min = v
	case query.OpLT:
		rc.Max, rc.MaxExclusive = v, true
	case query.OpLTE:
		rc.Max = v
	default:
		return db.RangeCondition{}, fmt.Errorf("%w: unknown numeric operator %q", domain.ErrInvalidRequest, op)
	}
	return rc, nil
}

func buildHits(idx domidx.Index, sr *db.SearchResult, fanout bool) ([]json.RawMessage, error) {
	hits := make([]json.RawMessage, 0, len(sr.Entries))
	if fanout {
		return hits, nil
	}
	for _, e := range sr.Entries {
		rec := record.FromHash(idx, record.IDFromKey(idx, e.Key), e.Fields)
		b, err := json.Marshal(rec.Attributes())
		if err != nil {
			return nil, fmt.Errorf("marshal hit %s: %w", e.Key, err)
		}
		hits = append(hits, b)
	}
	return hits, nil
}

func nbPages(total, hpp int) int {
	if hpp <= 0 || total <= 0 {
		return 0
	}
	return (total + hpp - 1) / hpp
}

func wrap(idx domidx.Index, op string, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%s %s: %w", op, idx.Name(), domain.ErrIndexNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, idx.Name(), err)
}

package chi

import (
	"encoding/json"
	"fmt"
	"time"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeConfiguration      ErrorCode = "configuration_error"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeIndexNotFound      ErrorCode = "index_not_found"
	CodeRecordNotFound     ErrorCode = "record_not_found"
	CodeIndexAlreadyExists ErrorCode = "index_already_exists"
	CodeResponseCount      ErrorCode = "response_count_mismatch"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FieldDefinition declares one attribute of an index.
type FieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateIndexRequest is the body of POST /indexes.
type CreateIndexRequest struct {
	Name          string                  `json:"name"`
	Fields        []FieldDefinition       `json:"fields"`
	FacetOrdering *response.FacetOrdering `json:"facetOrdering,omitempty"`
}

// IndexResponse describes a stored index.
type IndexResponse struct {
	Name          string                  `json:"name"`
	Fields        []FieldDefinition       `json:"fields"`
	FacetOrdering *response.FacetOrdering `json:"facetOrdering,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	Revision      int                     `json:"revision"`
}

// IndexStatsResponse is the body of GET /indexes/{index}/stats.
type IndexStatsResponse struct {
	Entries  int64 `json:"entries"`
	Indexing bool  `json:"indexing"`
}

// IndexListResponse is the body of GET /indexes.
type IndexListResponse struct {
	Items []IndexResponse `json:"items"`
}

// HierarchicalFacet declares a multi-level facet.
type HierarchicalFacet struct {
	Name       string   `json:"name"`
	Attributes []string `json:"attributes"`
	Separator  string   `json:"separator,omitempty"`
	RootPath   string   `json:"rootPath,omitempty"`
}

// SearchState is the wire form of a search state: facet declarations,
// refinements and paging. Clients send it back to continue refining.
type SearchState struct {
	Query                         string                                  `json:"query"`
	Facets                        []string                                `json:"facets,omitempty"`
	DisjunctiveFacets             []string                                `json:"disjunctiveFacets,omitempty"`
	HierarchicalFacets            []HierarchicalFacet                     `json:"hierarchicalFacets,omitempty"`
	FacetsRefinements             map[string][]string                     `json:"facetsRefinements,omitempty"`
	FacetsExcludes                map[string][]string                     `json:"facetsExcludes,omitempty"`
	DisjunctiveFacetsRefinements  map[string][]string                     `json:"disjunctiveFacetsRefinements,omitempty"`
	HierarchicalFacetsRefinements map[string]string                       `json:"hierarchicalFacetsRefinements,omitempty"`
	NumericRefinements            map[string]map[query.Operator][]float64 `json:"numericRefinements,omitempty"`
	TagRefinements                []string                                `json:"tagRefinements,omitempty"`
	Page                          int                                     `json:"page"`
	HitsPerPage                   int                                     `json:"hitsPerPage"`
	MaxValuesPerFacet             int                                     `json:"maxValuesPerFacet,omitempty"`
	ClickAnalytics                bool                                    `json:"clickAnalytics,omitempty"`
}

// RefineRequest is the body of POST /indexes/{index}/refine.
type RefineRequest struct {
	State      SearchState       `json:"state"`
	Operations []state.Operation `json:"operations"`
}

// FacetResponse holds the resolved values of one declared facet.
type FacetResponse struct {
	Name       string                     `json:"name"`
	Kind       facet.Kind                 `json:"kind"`
	Exhaustive bool                       `json:"exhaustive"`
	Values     []results.Value            `json:"values,omitempty"`
	Tree       *results.HierarchicalValue `json:"tree,omitempty"`
	Stats      *response.Stats            `json:"stats,omitempty"`
}

// SearchResponse is the body of a search or refine answer.
type SearchResponse struct {
	Hits             []json.RawMessage    `json:"hits"`
	NbHits           int                  `json:"nbHits"`
	Page             int                  `json:"page"`
	NbPages          int                  `json:"nbPages"`
	HitsPerPage      int                  `json:"hitsPerPage"`
	ProcessingTimeMS int                  `json:"processingTimeMS"`
	QueryID          string               `json:"queryID,omitempty"`
	Facets           []FacetResponse      `json:"facets"`
	Refinements      []results.Refinement `json:"refinements"`
	State            SearchState          `json:"state"`
}

// RecordBatchRequest is the body of POST /indexes/{index}/records/batch.
type RecordBatchRequest struct {
	Records []map[string]any `json:"records"`
}

// BatchItemResponse is the outcome of one batch record.
type BatchItemResponse struct {
	ObjectID string    `json:"objectID"`
	Status   string    `json:"status"`
	Code     ErrorCode `json:"code,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// BatchResponse is the body of a batch answer.
type BatchResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func indexToResponse(idx domidx.Index) IndexResponse {
	fields := make([]FieldDefinition, len(idx.Fields()))
	for i, f := range idx.Fields() {
		fields[i] = FieldDefinition{Name: f.Name(), Type: string(f.FieldType())}
	}
	return IndexResponse{
		Name:          idx.Name(),
		Fields:        fields,
		FacetOrdering: idx.FacetOrdering(),
		CreatedAt:     time.UnixMilli(idx.CreatedAt()).UTC(),
		Revision:      idx.Revision(),
	}
}

func fieldsFromRequest(ff []FieldDefinition) ([]field.Field, error) {
	fields := make([]field.Field, len(ff))
	for i, f := range ff {
		fld, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields[i] = fld
	}
	return fields, nil
}

// params converts the wire state into state parameters for index.
func (s SearchState) params(index string) (state.Params, error) {
	hierarchies := make([]facet.Hierarchy, 0, len(s.HierarchicalFacets))
	for _, hf := range s.HierarchicalFacets {
		h, err := facet.NewHierarchy(hf.Name, hf.Attributes, hf.Separator, hf.RootPath)
		if err != nil {
			return state.Params{}, err
		}
		hierarchies = append(hierarchies, h)
	}
	return state.Params{
		Index:                   index,
		Query:                   s.Query,
		Facets:                  s.Facets,
		DisjunctiveFacets:       s.DisjunctiveFacets,
		HierarchicalFacets:      hierarchies,
		FacetRefinements:        s.FacetsRefinements,
		FacetExclusions:         s.FacetsExcludes,
		DisjunctiveRefinements:  s.DisjunctiveFacetsRefinements,
		HierarchicalRefinements: s.HierarchicalFacetsRefinements,
		NumericRefinements:      s.NumericRefinements,
		TagRefinements:          s.TagRefinements,
		Page:                    s.Page,
		HitsPerPage:             s.HitsPerPage,
		MaxValuesPerFacet:       s.MaxValuesPerFacet,
		ClickAnalytics:          s.ClickAnalytics,
	}, nil
}

func stateToWire(st state.State) SearchState {
	p := st.Params()
	hierarchies := make([]HierarchicalFacet, len(p.HierarchicalFacets))
	for i, h := range p.HierarchicalFacets {
		hierarchies[i] = HierarchicalFacet{
			Name:       h.Name(),
			Attributes: h.Attributes(),
			Separator:  h.Separator(),
			RootPath:   h.RootPath(),
		}
	}
	return SearchState{
		Query:                         p.Query,
		Facets:                        p.Facets,
		DisjunctiveFacets:             p.DisjunctiveFacets,
		HierarchicalFacets:            hierarchies,
		FacetsRefinements:             p.FacetRefinements,
		FacetsExcludes:                p.FacetExclusions,
		DisjunctiveFacetsRefinements:  p.DisjunctiveRefinements,
		HierarchicalFacetsRefinements: p.HierarchicalRefinements,
		NumericRefinements:            p.NumericRefinements,
		TagRefinements:                p.TagRefinements,
		Page:                          p.Page,
		HitsPerPage:                   p.HitsPerPage,
		MaxValuesPerFacet:             p.MaxValuesPerFacet,
		ClickAnalytics:                p.ClickAnalytics,
	}
}

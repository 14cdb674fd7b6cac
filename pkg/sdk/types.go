package facetdex

import (
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

// FieldType defines the type of an index attribute.
type FieldType string

// Field type constants.
const (
	FieldTag     FieldType = "tag"
	FieldNumeric FieldType = "numeric"
	FieldText    FieldType = "text"
)

// IndexInfo represents index metadata.
type IndexInfo struct {
	Name          string
	Fields        []FieldInfo
	FacetOrdering *FacetOrdering
	Revision      int
	CreatedAt     int64
}

// IndexStats is the backend view of an index. Facet counts are partial
// while Indexing is set.
type IndexStats struct {
	Entries  int64
	Indexing bool
}

// FieldInfo represents an index attribute definition.
type FieldInfo struct {
	Name string
	Type FieldType
}

// BatchResult is the outcome of one item in a batch operation.
type BatchResult struct {
	ID  string
	OK  bool
	Err error
}

// Search state and results. These are the types the service itself uses,
// so states built here can be refined and searched without conversion.
type (
	State             = state.State
	Params            = state.Params
	Operation         = state.Operation
	OperationType     = state.OperationType
	Hierarchy         = facet.Hierarchy
	FacetKind         = facet.Kind
	Operator          = query.Operator
	Results           = results.Results
	FacetOptions      = results.FacetOptions
	FacetValue        = results.Value
	HierarchicalValue = results.HierarchicalValue
	Refinement        = results.Refinement
	FacetOrdering     = response.FacetOrdering
	FacetsOrder       = response.FacetsOrder
	ValuesOrder       = response.ValuesOrder
	Stats             = response.Stats
)

// Facet kinds.
const (
	Conjunctive  = facet.Conjunctive
	Disjunctive  = facet.Disjunctive
	Hierarchical = facet.Hierarchical
)

// Numeric operators.
const (
	OpEQ  = query.OpEQ
	OpNEQ = query.OpNEQ
	OpGT  = query.OpGT
	OpGTE = query.OpGTE
	OpLT  = query.OpLT
	OpLTE = query.OpLTE
)

// Refinement operation types, for Refine and Operation values.
const (
	OpAdd              = state.OpAdd
	OpRemove           = state.OpRemove
	OpToggle           = state.OpToggle
	OpClear            = state.OpClear
	OpRefineLevel      = state.OpRefineLevel
	OpExclude          = state.OpExclude
	OpInclude          = state.OpInclude
	OpToggleExclusion  = state.OpToggleExclusion
	OpAddNumeric       = state.OpAddNumeric
	OpRemoveNumeric    = state.OpRemoveNumeric
	OpClearNumeric     = state.OpClearNumeric
	OpAddTag           = state.OpAddTag
	OpRemoveTag        = state.OpRemoveTag
	OpToggleTag        = state.OpToggleTag
	OpClearTags        = state.OpClearTags
	OpClearRefinements = state.OpClearRefinements
	OpSetQuery         = state.OpSetQuery
	OpSetPage          = state.OpSetPage
	OpSetHitsPerPage   = state.OpSetHitsPerPage
)

// NewState validates params and builds a search state.
func NewState(p Params) (State, error) { return state.New(p) }

// NewHierarchy declares a hierarchical facet over level attributes.
// An empty separator defaults to " > ".
func NewHierarchy(name string, attributes []string, separator, rootPath string) (Hierarchy, error) {
	return facet.NewHierarchy(name, attributes, separator, rootPath)
}

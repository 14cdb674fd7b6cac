package state

import (
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// OperationType names a refinement operation that can be carried over the wire.
type OperationType string

// Operation types.
const (
	OpAdd              OperationType = "add"
	OpRemove           OperationType = "remove"
	OpToggle           OperationType = "toggle"
	OpClear            OperationType = "clear"
	OpRefineLevel      OperationType = "refineLevel"
	OpExclude          OperationType = "exclude"
	OpInclude          OperationType = "include"
	OpToggleExclusion  OperationType = "toggleExclusion"
	OpAddNumeric       OperationType = "addNumeric"
	OpRemoveNumeric    OperationType = "removeNumeric"
	OpClearNumeric     OperationType = "clearNumeric"
	OpAddTag           OperationType = "addTag"
	OpRemoveTag        OperationType = "removeTag"
	OpToggleTag        OperationType = "toggleTag"
	OpClearTags        OperationType = "clearTags"
	OpClearRefinements OperationType = "clearRefinements"
	OpSetQuery         OperationType = "setQuery"
	OpSetPage          OperationType = "setPage"
	OpSetHitsPerPage   OperationType = "setHitsPerPage"
)

// Operation is a serializable refinement operation.
// Which fields are read depends on Type.
type Operation struct {
	Type     OperationType  `json:"type"`
	Kind     facet.Kind     `json:"kind,omitempty"`
	Facet    string         `json:"facet,omitempty"`
	Value    string         `json:"value,omitempty"`
	Level    int            `json:"level,omitempty"`
	Operator query.Operator `json:"operator,omitempty"`
	Number   float64        `json:"number,omitempty"`
}

type applyFunc func(State, Operation) (State, error)

var operations = map[OperationType]applyFunc{
	OpAdd:             func(s State, op Operation) (State, error) { return s.Add(op.Kind, op.Facet, op.Value) },
	OpRemove:          func(s State, op Operation) (State, error) { return s.Remove(op.Kind, op.Facet, op.Value) },
	OpToggle:          func(s State, op Operation) (State, error) { return s.Toggle(op.Kind, op.Facet, op.Value) },
	OpClear:           func(s State, op Operation) (State, error) { return s.Clear(op.Kind, op.Facet) },
	OpRefineLevel:     func(s State, op Operation) (State, error) { return s.RefineLevel(op.Facet, op.Level, op.Value) },
	OpExclude:         func(s State, op Operation) (State, error) { return s.Exclude(op.Facet, op.Value) },
	OpInclude:         func(s State, op Operation) (State, error) { return s.Include(op.Facet, op.Value) },
	OpToggleExclusion: func(s State, op Operation) (State, error) { return s.ToggleExclusion(op.Facet, op.Value) },
	OpAddNumeric: func(s State, op Operation) (State, error) {
		return s.AddNumericRefinement(op.Facet, op.Operator, op.Number)
	},
	OpRemoveNumeric: func(s State, op Operation) (State, error) {
		return s.RemoveNumericRefinement(op.Facet, op.Operator, op.Number)
	},
	OpClearNumeric:     func(s State, op Operation) (State, error) { return s.ClearNumericRefinements(op.Facet), nil },
	OpAddTag:           func(s State, op Operation) (State, error) { return s.AddTagRefinement(op.Value) },
	OpRemoveTag:        func(s State, op Operation) (State, error) { return s.RemoveTagRefinement(op.Value), nil },
	OpToggleTag:        func(s State, op Operation) (State, error) { return s.ToggleTagRefinement(op.Value) },
	OpClearTags:        func(s State, _ Operation) (State, error) { return s.ClearTags(), nil },
	OpClearRefinements: func(s State, _ Operation) (State, error) { return s.ClearRefinements(), nil },
	OpSetQuery:         func(s State, op Operation) (State, error) { return s.SetQuery(op.Value) },
	OpSetPage:          func(s State, op Operation) (State, error) { return s.SetPage(op.Level) },
	OpSetHitsPerPage:   func(s State, op Operation) (State, error) { return s.SetHitsPerPage(op.Level) },
}

// Apply runs a serialized operation against the state.
// setPage and setHitsPerPage read their argument from Level.
func (s State) Apply(op Operation) (State, error) {
	fn, ok := operations[op.Type]
	if !ok {
		return State{}, domain.NewConfigurationError(op.Facet, "unknown operation %q", op.Type)
	}
	return fn(s, op)
}

// ApplyAll runs operations in order and stops at the first failure.
func (s State) ApplyAll(ops []Operation) (State, error) {
	cur := s
	for _, op := range ops {
		next, err := cur.Apply(op)
		if err != nil {
			return State{}, err
		}
		cur = next
	}
	return cur, nil
}

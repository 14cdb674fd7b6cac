package index

import (
	"encoding/json"
	"fmt"
	"strconv"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// fieldRow is the JSON-serializable representation of a field for HSET.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// indexToHash converts a domain Index to a map for HSET.
func indexToHash(idx domidx.Index) (map[string]string, error) {
	rows := make([]fieldRow, len(idx.Fields()))
	for i, f := range idx.Fields() {
		rows[i] = fieldRow{Name: f.Name(), Type: string(f.FieldType())}
	}
	fieldsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	m := map[string]string{
		"name":        idx.Name(),
		"fields_json": string(fieldsJSON),
		"created_at":  strconv.FormatInt(idx.CreatedAt(), 10),
		"revision":    strconv.Itoa(idx.Revision()),
		// Empty clears a previous ordering on HSET.
		"facet_ordering_json": "",
	}
	if o := idx.FacetOrdering(); o != nil {
		orderingJSON, err := json.Marshal(o)
		if err != nil {
			return nil, fmt.Errorf("marshal facet ordering: %w", err)
		}
		m["facet_ordering_json"] = string(orderingJSON)
	}
	return m, nil
}

// indexFromHash hydrates a domain Index from an HGETALL result map.
func indexFromHash(m map[string]string) (domidx.Index, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var rows []fieldRow
	if s := m["fields_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &rows); err != nil {
			return domidx.Index{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	fields := make([]field.Field, len(rows))
	for i, r := range rows {
		fields[i] = field.Reconstruct(r.Name, field.Type(r.Type))
	}

	revision := 1
	if revStr, ok := m["revision"]; ok && revStr != "" {
		if parsed, err := strconv.Atoi(revStr); err == nil {
			revision = parsed
		}
	}

	idx := domidx.Reconstruct(m["name"], fields, createdAt, revision)
	if s := m["facet_ordering_json"]; s != "" {
		var o response.FacetOrdering
		if err := json.Unmarshal([]byte(s), &o); err != nil {
			return domidx.Index{}, fmt.Errorf("unmarshal facet ordering: %w", err)
		}
		idx = idx.WithFacetOrdering(&o)
	}
	return idx, nil
}

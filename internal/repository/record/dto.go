package record

import (
	"strconv"
	"strings"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	domrec "github.com/kailas-cloud/facetdex/internal/domain/record"
)

// ToHash converts a record into a flat map for HSET.
// Multi-valued tags are joined with the index tag separator.
func ToHash(rec domrec.Record) map[string]string {
	m := make(map[string]string, len(rec.Tags())+len(rec.Numerics())+len(rec.Text()))
	for k, v := range rec.Text() {
		m[k] = v
	}
	for k, v := range rec.Numerics() {
		m[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	for k, v := range rec.Tags() {
		m[k] = strings.Join(v, domidx.TagSeparator)
	}
	return m
}

// FromHash converts a flat hash back into a record, typing every field
// through the index schema. Fields the schema does not know are dropped.
func FromHash(idx domidx.Index, id string, m map[string]string) domrec.Record {
	tags := make(map[string][]string)
	numerics := make(map[string]float64)
	text := make(map[string]string)

	for k, v := range m {
		if k == domidx.TagsAttribute {
			tags[k] = splitTags(v)
			continue
		}
		f, ok := idx.FieldByName(k)
		if !ok {
			continue
		}
		switch f.FieldType() {
		case field.Tag:
			tags[k] = splitTags(v)
		case field.Numeric:
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				numerics[k] = n
			}
		case field.Text:
			text[k] = v
		}
	}

	return domrec.Reconstruct(id, tags, numerics, text)
}

func splitTags(v string) []string {
	if v == "" {
		return []string{}
	}
	return strings.Split(v, domidx.TagSeparator)
}

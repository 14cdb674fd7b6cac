package db

// SearchQuery is the input for a paginated FT.SEARCH.
type SearchQuery struct {
	IndexName    string
	Filter       Filter
	Offset       int
	Limit        int // 0 only counts
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// AggregateQuery counts distinct values of tag fields and computes
// statistics of numeric fields over the documents matching Filter.
// Each field is a separate FT.AGGREGATE sent in one pipeline.
type AggregateQuery struct {
	IndexName string
	Filter    Filter
	// TagFields are grouped by value; multi-valued tags are split on Separator.
	TagFields []string
	Separator string
	// Limit caps the number of values per tag field (most frequent first).
	Limit int
	// StatFields get MIN/MAX/AVG/SUM reducers.
	StatFields []string
}

// AggregateResult is the output of an aggregation.
type AggregateResult struct {
	Counts []FieldCounts
	Stats  []FieldStats
}

// FieldCounts holds the value counts of one tag field.
type FieldCounts struct {
	Field  string
	Values map[string]int
	// Truncated is set when the value list reached the query limit.
	Truncated bool
}

// FieldStats holds the statistics of one numeric field.
type FieldStats struct {
	Field              string
	Min, Max, Avg, Sum float64
	// Empty is set when no matching document carries the field.
	Empty bool
}

// Filter is a structured FT query: Text AND every group, where the
// conditions inside a group are ORed, AND every range.
type Filter struct {
	Text   string
	Groups [][]TagCondition
	Ranges []RangeCondition
}

// IsEmpty reports whether the filter matches every document.
func (f Filter) IsEmpty() bool {
	return f.Text == "" && len(f.Groups) == 0 && len(f.Ranges) == 0
}

// TagCondition matches an exact tag value.
type TagCondition struct {
	Field   string
	Value   string
	Negated bool
}

// RangeCondition matches a numeric interval. Use math.Inf for open ends.
type RangeCondition struct {
	Field        string
	Min, Max     float64
	MinExclusive bool
	MaxExclusive bool
	Negated      bool
}

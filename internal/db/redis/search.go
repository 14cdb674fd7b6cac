package redis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// DefaultAggregateLimit caps tag value groups when the query sets no limit.
const DefaultAggregateLimit = 100

// Search performs a paginated search via FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("offset and limit must be >= 0")
	}

	args := []string{
		q.IndexName, buildQuery(q.Filter),
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
	}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseListResult(raw)
}

// Aggregate counts tag values and computes numeric statistics. Every field
// becomes its own FT.AGGREGATE; all of them go out in a single DoMulti.
func (s *Store) Aggregate(ctx context.Context, q *db.AggregateQuery) (*db.AggregateResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.TagFields) == 0 && len(q.StatFields) == 0 {
		return &db.AggregateResult{}, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}
	query := buildQuery(q.Filter)

	cmds := make([]rueidis.Completed, 0, len(q.TagFields)+len(q.StatFields))
	for _, f := range q.TagFields {
		args := countArgs(q.IndexName, query, f, q.Separator, limit)
		cmds = append(cmds, s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build())
	}
	for _, f := range q.StatFields {
		args := statsArgs(q.IndexName, q.Filter, f)
		cmds = append(cmds, s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := &db.AggregateResult{
		Counts: make([]db.FieldCounts, 0, len(q.TagFields)),
		Stats:  make([]db.FieldStats, 0, len(q.StatFields)),
	}

	for i, res := range results {
		var field string
		if i < len(q.TagFields) {
			field = q.TagFields[i]
		} else {
			field = q.StatFields[i-len(q.TagFields)]
		}

		raw, err := res.ToArray()
		if err != nil {
			if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
				return nil, db.ErrIndexNotFound
			}
			return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("field %s: %w", field, err)}
		}
		rows := parseAggregateRows(raw)

		if i < len(q.TagFields) {
			out.Counts = append(out.Counts, countsFromRows(field, rows, limit))
			continue
		}
		st, err := statsFromRows(field, rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpAggregate, Err: err}
		}
		out.Stats = append(out.Stats, st)
	}

	return out, nil
}

// countArgs groups by each value of a (possibly multi-valued) tag field.
// One extra row is requested so truncation can be detected.
func countArgs(index, query, field, separator string, limit int) []string {
	args := []string{index, query, "LOAD", "1", "@" + field}
	if separator != "" {
		args = append(args, "APPLY", fmt.Sprintf("split(@%s, %q)", field, separator), "AS", field)
	}
	n := strconv.Itoa(limit + 1)
	return append(args,
		"GROUPBY", "1", "@"+field,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC", "MAX", n,
		"LIMIT", "0", n,
		"DIALECT", "2",
	)
}

// statsArgs restricts the query to documents carrying the field so that
// MIN and MAX never see a missing value.
func statsArgs(index string, f db.Filter, field string) []string {
	f.Ranges = append(append([]db.RangeCondition(nil), f.Ranges...), db.RangeCondition{
		Field: field, Min: math.Inf(-1), Max: math.Inf(1),
	})
	ref := "@" + field
	return []string{
		index, buildQuery(f), "LOAD", "1", ref,
		"GROUPBY", "0",
		"REDUCE", "COUNT", "0", "AS", "count",
		"REDUCE", "MIN", "1", ref, "AS", "min",
		"REDUCE", "MAX", "1", ref, "AS", "max",
		"REDUCE", "AVG", "1", ref, "AS", "avg",
		"REDUCE", "SUM", "1", ref, "AS", "sum",
		"DIALECT", "2",
	}
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseAggregateRows reads [total, row1, row2, ...] where every row is a flat
// field/value array.
func parseAggregateRows(raw []rueidis.RedisMessage) []map[string]string {
	if len(raw) < 2 {
		return nil
	}
	rows := make([]map[string]string, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		fields, err := msg.ToArray()
		if err != nil {
			continue
		}
		rows = append(rows, parseFieldPairs(fields))
	}
	return rows
}

func countsFromRows(field string, rows []map[string]string, limit int) db.FieldCounts {
	fc := db.FieldCounts{Field: field, Values: make(map[string]int, len(rows))}
	for _, row := range rows {
		value := row[field]
		if value == "" {
			continue
		}
		if len(fc.Values) == limit {
			fc.Truncated = true
			break
		}
		n, err := strconv.Atoi(row["count"])
		if err != nil {
			continue
		}
		fc.Values[value] += n
	}
	return fc
}

func statsFromRows(field string, rows []map[string]string) (db.FieldStats, error) {
	st := db.FieldStats{Field: field}
	if len(rows) == 0 {
		st.Empty = true
		return st, nil
	}
	row := rows[0]
	if n, err := strconv.Atoi(row["count"]); err != nil || n == 0 {
		st.Empty = true
		return st, nil
	}
	for _, v := range []struct {
		name string
		dst  *float64
	}{
		{"min", &st.Min}, {"max", &st.Max}, {"avg", &st.Avg}, {"sum", &st.Sum},
	} {
		f, err := strconv.ParseFloat(row[v.name], 64)
		if err != nil {
			return db.FieldStats{}, fmt.Errorf("field %s: parse %s: %w", field, v.name, err)
		}
		*v.dst = f
	}
	return st, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery translates a db.Filter into an FT query string; "*" when empty.
func buildQuery(f db.Filter) string {
	if f.IsEmpty() {
		return "*"
	}

	var parts []string

	if f.Text != "" {
		parts = append(parts, escapeQuery(f.Text))
	}

	for _, group := range f.Groups {
		if g := buildGroup(group); g != "" {
			parts = append(parts, g)
		}
	}

	for _, r := range f.Ranges {
		parts = append(parts, buildRange(r))
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildGroup(conds []db.TagCondition) string {
	switch len(conds) {
	case 0:
		return ""
	case 1:
		return buildTagFilter(conds[0])
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, buildTagFilter(c))
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildTagFilter(c db.TagCondition) string {
	s := fmt.Sprintf("@%s:{%s}", c.Field, tagEscaper.Replace(c.Value))
	if c.Negated {
		return "-" + s
	}
	return s
}

func buildRange(r db.RangeCondition) string {
	s := fmt.Sprintf("@%s:[%s %s]", r.Field, bound(r.Min, r.MinExclusive), bound(r.Max, r.MaxExclusive))
	if r.Negated {
		return "-" + s
	}
	return s
}

func bound(v float64, exclusive bool) string {
	var s string
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	default:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if exclusive {
		return "(" + s
	}
	return s
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)

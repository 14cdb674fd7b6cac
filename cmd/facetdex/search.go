package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/results"
	"github.com/kailas-cloud/facetdex/internal/domain/search/state"
)

type searchOptions struct {
	facets       []string
	disjunctive  []string
	hierarchical []string
	refine       []string
	exclude      []string
	numeric      []string
	tags         []string
	sortBy       []string
	page         int
	hitsPerPage  int
	maxValues    int
	asJSON       bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search INDEX [QUERY]",
		Short: "Run a faceted search and print hits and facet values",
		Example: `  facetdex search products phone --disjunctive brand --refine brand=Apple --refine brand=Samsung
  facetdex search products --hierarchical categories=categories.lvl0,categories.lvl1 --refine "categories=Phones > Android"
  facetdex search products --facet price --numeric "price>=100" --sort-by name:asc`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.state(args)
			if err != nil {
				return err
			}
			fo := results.FacetOptions{SortBy: opts.sortBy}
			if err := fo.Validate(); err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.search.Search(cmd.Context(), st)
			if err != nil {
				return err
			}
			if opts.asJSON {
				view, err := searchView(res, fo)
				if err != nil {
					return err
				}
				return printJSON(cmd, view)
			}
			return printResults(cmd.OutOrStdout(), res, fo)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.facets, "facet", nil, "conjunctive facet; repeatable")
	f.StringSliceVar(&opts.disjunctive, "disjunctive", nil, "disjunctive facet; repeatable")
	f.StringArrayVar(&opts.hierarchical, "hierarchical", nil, "hierarchical facet as name=attr0,attr1,...; repeatable")
	f.StringArrayVar(&opts.refine, "refine", nil, "refinement as facet=value; repeatable")
	f.StringArrayVar(&opts.exclude, "exclude", nil, "conjunctive exclusion as facet=value; repeatable")
	f.StringArrayVar(&opts.numeric, "numeric", nil, `numeric filter such as "price>=100"; repeatable`)
	f.StringSliceVar(&opts.tags, "tag", nil, "tag filter; repeatable")
	f.StringSliceVar(&opts.sortBy, "sort-by", nil, "facet value order, e.g. count:desc,name:asc")
	f.IntVar(&opts.page, "page", 0, "page number, zero-based")
	f.IntVar(&opts.hitsPerPage, "hits-per-page", 0, "hits per page (default 20)")
	f.IntVar(&opts.maxValues, "max-values", 10, "max values per facet")
	f.BoolVar(&opts.asJSON, "json", false, "print JSON")
	return cmd
}

// state builds the search state. Refinements are routed to the kind their
// facet was declared with.
func (o *searchOptions) state(args []string) (state.State, error) {
	p := state.Params{
		Index:             args[0],
		Facets:            o.facets,
		DisjunctiveFacets: o.disjunctive,
		Page:              o.page,
		HitsPerPage:       o.hitsPerPage,
		MaxValuesPerFacet: o.maxValues,
		TagRefinements:    o.tags,
	}
	if len(args) > 1 {
		p.Query = args[1]
	}
	for _, arg := range o.hierarchical {
		name, attrs, ok := strings.Cut(arg, "=")
		if !ok {
			return state.State{}, fmt.Errorf("hierarchical %q: want name=attr0,attr1", arg)
		}
		h, err := facet.NewHierarchy(name, strings.Split(attrs, ","), "", "")
		if err != nil {
			return state.State{}, fmt.Errorf("hierarchical %q: %w", arg, err)
		}
		p.HierarchicalFacets = append(p.HierarchicalFacets, h)
	}

	st, err := state.New(p)
	if err != nil {
		return state.State{}, err
	}

	for _, arg := range o.refine {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return state.State{}, fmt.Errorf("refine %q: want facet=value", arg)
		}
		kind, declared := st.Kind(name)
		if !declared {
			kind = facet.Conjunctive
		}
		if st, err = st.Add(kind, name, value); err != nil {
			return state.State{}, err
		}
	}
	for _, arg := range o.exclude {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return state.State{}, fmt.Errorf("exclude %q: want facet=value", arg)
		}
		if st, err = st.Exclude(name, value); err != nil {
			return state.State{}, err
		}
	}
	for _, arg := range o.numeric {
		attr, op, v, err := parseNumeric(arg)
		if err != nil {
			return state.State{}, err
		}
		if st, err = st.AddNumericRefinement(attr, op, v); err != nil {
			return state.State{}, err
		}
	}
	return st, nil
}

// operators is ordered so that two-character operators match first.
var operators = []query.Operator{query.OpGTE, query.OpLTE, query.OpNEQ, query.OpGT, query.OpLT, query.OpEQ}

func parseNumeric(arg string) (string, query.Operator, float64, error) {
	for _, op := range operators {
		attr, raw, ok := strings.Cut(arg, string(op))
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return "", "", 0, fmt.Errorf("numeric %q: %w", arg, err)
		}
		return strings.TrimSpace(attr), op, v, nil
	}
	return "", "", 0, fmt.Errorf("numeric %q: no operator", arg)
}

func printResults(w io.Writer, res *results.Results, fo results.FacetOptions) error {
	fmt.Fprintf(w, "%d hits (page %d/%d, %dms)\n", res.NbHits(), res.Page()+1, max(res.NbPages(), 1), res.ProcessingTimeMS())
	for _, hit := range res.Hits() {
		fmt.Fprintf(w, "  %s\n", hit)
	}

	st := res.State()
	for _, name := range res.FacetOrder() {
		kind, _ := st.Kind(name)
		fmt.Fprintf(w, "\n%s (%s)\n", name, kind)
		if kind == facet.Hierarchical {
			tree, err := res.HierarchicalValues(name, fo)
			if err != nil {
				return err
			}
			printTree(w, tree.Data, 1)
			continue
		}
		values, err := res.FacetValues(name, fo)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintf(w, "  %s %s (%d)\n", mark(v.IsRefined, v.IsExcluded), v.Name, v.Count)
		}
		if s, ok := res.Stats(name); ok {
			fmt.Fprintf(w, "  min %g, max %g, avg %g\n", s.Min, s.Max, s.Avg)
		}
	}
	return nil
}

func printTree(w io.Writer, nodes []results.HierarchicalValue, depth int) {
	for _, n := range nodes {
		count := 0
		if n.Count != nil {
			count = *n.Count
		}
		fmt.Fprintf(w, "%s%s %s (%d)\n", strings.Repeat("  ", depth), mark(n.IsRefined, false), n.Name, count)
		printTree(w, n.Data, depth+1)
	}
}

func mark(refined, excluded bool) string {
	switch {
	case excluded:
		return "[-]"
	case refined:
		return "[x]"
	default:
		return "[ ]"
	}
}

type facetJSON struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Values any    `json:"values"`
}

type searchJSON struct {
	NbHits      int                  `json:"nbHits"`
	Page        int                  `json:"page"`
	NbPages     int                  `json:"nbPages"`
	Hits        []json.RawMessage    `json:"hits"`
	Facets      []facetJSON          `json:"facets"`
	Refinements []results.Refinement `json:"refinements"`
}

func searchView(res *results.Results, fo results.FacetOptions) (searchJSON, error) {
	out := searchJSON{
		NbHits:      res.NbHits(),
		Page:        res.Page(),
		NbPages:     res.NbPages(),
		Hits:        res.Hits(),
		Refinements: res.Refinements(),
	}
	st := res.State()
	for _, name := range res.FacetOrder() {
		kind, _ := st.Kind(name)
		values, err := res.Resolve(name, fo)
		if err != nil {
			return searchJSON{}, err
		}
		out.Facets = append(out.Facets, facetJSON{Name: name, Kind: string(kind), Values: values})
	}
	return out, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	domidx "github.com/kailas-cloud/facetdex/internal/domain/index"
	"github.com/kailas-cloud/facetdex/internal/domain/index/field"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

func newIndexCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage indexes",
	}
	cmd.AddCommand(
		newIndexCreateCmd(root),
		newIndexListCmd(root),
		newIndexGetCmd(root),
		newIndexDeleteCmd(root),
		newIndexStatsCmd(root),
		newIndexOrderingCmd(root),
	)
	return cmd
}

func newIndexCreateCmd(root *rootOptions) *cobra.Command {
	var (
		fieldSpecs   []string
		orderingFile string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an index",
		Example: `  facetdex index create products --field brand:tag --field price:numeric --field name:text
  facetdex index create products --field brand:tag --ordering ordering.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(fieldSpecs)
			if err != nil {
				return err
			}
			ordering, err := readOrdering(orderingFile)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			idx, err := a.indexes.Create(cmd.Context(), args[0], fields, ordering)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %q with %d fields\n", idx.Name(), len(idx.Fields()))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&fieldSpecs, "field", nil, "attribute as name:type (tag, numeric, text); repeatable")
	cmd.Flags().StringVar(&orderingFile, "ordering", "", "JSON file with facet ordering hints")
	return cmd
}

func newIndexListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			idxs, err := a.indexes.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFIELDS\tREVISION\tCREATED")
			for _, idx := range idxs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					idx.Name(), describeFields(idx), idx.Revision(),
					time.UnixMilli(idx.CreatedAt()).UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newIndexGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show an index definition as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			idx, err := a.indexes.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, indexView(idx))
		},
	}
}

func newIndexStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats NAME",
		Short: "Show how many records the backend has indexed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.indexes.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "ready"
			if st.Indexing {
				state = "indexing"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries (%s)\n", args[0], st.Entries, state)
			return nil
		},
	}
}

func newIndexDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an index; records are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.indexes.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted index %q\n", args[0])
			return nil
		},
	}
}

func newIndexOrderingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-ordering NAME FILE",
		Short: "Replace the facet ordering hints of an index; an empty FILE argument clears them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ordering, err := readOrdering(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), root.env, "cli")
			if err != nil {
				return err
			}
			defer a.Close()

			idx, err := a.indexes.SetFacetOrdering(cmd.Context(), args[0], ordering)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index %q now at revision %d\n", idx.Name(), idx.Revision())
			return nil
		},
	}
}

// parseFields turns "brand:tag" specs into fields.
func parseFields(specs []string) ([]field.Field, error) {
	fields := make([]field.Field, 0, len(specs))
	for _, spec := range specs {
		name, typ, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("field %q: want name:type", spec)
		}
		f, err := field.New(name, field.Type(typ))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", spec, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func readOrdering(path string) (*response.FacetOrdering, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ordering: %w", err)
	}
	var o response.FacetOrdering
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse ordering %s: %w", path, err)
	}
	return &o, nil
}

func describeFields(idx domidx.Index) string {
	parts := make([]string, len(idx.Fields()))
	for i, f := range idx.Fields() {
		parts[i] = f.Name() + ":" + string(f.FieldType())
	}
	return strings.Join(parts, ",")
}

type indexJSON struct {
	Name          string                  `json:"name"`
	Fields        map[string]field.Type   `json:"fields"`
	FacetOrdering *response.FacetOrdering `json:"facetOrdering,omitempty"`
	Revision      int                     `json:"revision"`
	CreatedAt     time.Time               `json:"createdAt"`
}

func indexView(idx domidx.Index) indexJSON {
	fields := make(map[string]field.Type, len(idx.Fields()))
	for _, f := range idx.Fields() {
		fields[f.Name()] = f.FieldType()
	}
	return indexJSON{
		Name:          idx.Name(),
		Fields:        fields,
		FacetOrdering: idx.FacetOrdering(),
		Revision:      idx.Revision(),
		CreatedAt:     time.UnixMilli(idx.CreatedAt()).UTC(),
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

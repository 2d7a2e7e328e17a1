package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mstransform/internal/engine"
	"mstransform/internal/storage"
	"mstransform/internal/table"
)

func newSplitCommand(e *env) *cobra.Command {
	var sel engine.SelectionSpec
	ccmd := &cobra.Command{
		Use:   "split SOURCE OUTPUT",
		Short: "Write the selected part of a dataset to a new dataset",
		Long: `
Applies a selection to the dataset in SOURCE and writes the re-indexed result
to OUTPUT. An empty selection copies the dataset.
`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			src, err := storage.Open(args[0])
			if err != nil {
				return err
			}
			res, err := e.engine().Transform(context.Background(), src, sel)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				e.warn("warning: %s: %s", w.Kind, w.Message)
			}
			if err := storage.Write(args[1], res.Dataset); err != nil {
				return err
			}
			printOutcomes(e, res.Outcomes)
			e.ok("wrote %s: %d rows", args[1], res.Dataset.NumRows(table.Main))
			return nil
		},
	}

	flags := ccmd.Flags()
	flags.StringVar(&sel.Field, "field", "", "fields by id, range or name pattern")
	flags.StringVar(&sel.Spw, "spw", "", "spectral windows and channel ranges, e.g. 0:0~63^2")
	flags.IntSliceVar(&sel.Width, "width", nil, "channels averaged per output channel, one per spw range")
	flags.StringVar(&sel.Baseline, "baseline", "", "baselines, e.g. 0&1;2;!DV05")
	flags.StringVar(&sel.Correlation, "correlation", "", "correlations, e.g. XX,YY")
	flags.StringVar(&sel.TimeRange, "timerange", "", "time range t0~t1 in seconds")
	flags.StringVar(&sel.Scan, "scan", "", "scan numbers")
	flags.StringVar(&sel.Intent, "intent", "", "scan intent patterns")
	flags.StringVar(&sel.Observation, "observation", "", "observation ids")
	flags.StringVar(&sel.Array, "array", "", "array ids")
	flags.StringVar(&sel.UVRange, "uvrange", "", "uv distance range min~max in metres")
	flags.StringVar(&sel.Feed, "feed", "", "feed ids")
	flags.StringVar(&sel.Predicate, "predicate", "", "awk expression over MAIN columns")
	flags.StringVar(&sel.DataColumn, "datacolumn", "", "data column to keep: all, data, corrected, model or float_data")
	return ccmd
}

func printOutcomes(e *env, outcomes []engine.TableOutcome) {
	for _, o := range outcomes {
		if o.Kind == engine.SkippedOptional {
			continue
		}
		fmt.Fprintf(e.stdout, "%-18s %-10s %8d -> %d\n", o.Table, o.Kind, o.RowsIn, o.RowsOut)
	}
}

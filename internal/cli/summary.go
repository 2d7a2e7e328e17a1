package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"mstransform/internal/storage"
)

func newSummaryCommand(e *env) *cobra.Command {
	var asJSON bool
	ccmd := &cobra.Command{
		Use:   "summary DATASET",
		Short: "Print row counts per field, data description, antenna and table",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ds, err := storage.Open(args[0])
			if err != nil {
				return err
			}
			sum, err := e.engine().Summarize(ds)
			if err != nil {
				return err
			}
			if asJSON {
				b, err := json.MarshalIndent(sum, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(e.stdout, string(b))
				return nil
			}

			fmt.Fprintf(e.stdout, "%s: %d rows, time %.3f to %.3f\n", sum.Name, sum.Rows, sum.TimeStart, sum.TimeEnd)
			fmt.Fprintln(e.stdout, "field             ddi  spw      rows")
			for _, r := range sum.FieldDDI {
				fmt.Fprintf(e.stdout, "%-3d %-13s %3d  %3d  %8d\n", r.FieldID, r.FieldName, r.DDI, r.SpwID, r.Rows)
			}
			fmt.Fprintln(e.stdout, "antenna           rows")
			for _, a := range sum.Antennas {
				fmt.Fprintf(e.stdout, "%-3d %-13s %5d\n", a.AntennaID, a.Name, a.Rows)
			}
			fmt.Fprintln(e.stdout, "table             rows")
			for _, t := range sum.Tables {
				fmt.Fprintf(e.stdout, "%-17s %5d\n", t.Table, t.Rows)
			}
			return nil
		},
	}
	ccmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return ccmd
}

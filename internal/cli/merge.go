package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mstransform/internal/storage"
	"mstransform/internal/table"
)

func newMergeCommand(e *env) *cobra.Command {
	ccmd := &cobra.Command{
		Use:   "merge OUTPUT PARTITION...",
		Short: "Merge spectral-window partitions into one dataset",
		Long: `
Appends the spectral windows, data descriptions and MAIN rows of each
PARTITION after those of the first, shifting their ids, and writes the
result to OUTPUT.
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := context.Background()
			parts, err := storage.OpenAll(ctx, args[1:])
			if err != nil {
				return err
			}
			res, err := e.engine().Merge(ctx, parts)
			if err != nil {
				return err
			}
			if err := storage.Write(args[0], res.Dataset); err != nil {
				return err
			}
			for i, dir := range args[1:] {
				fmt.Fprintf(e.stdout, "%s: spw offset %d, ddi offset %d\n", dir, res.SpwOffsets[i], res.DDIOffsets[i])
			}
			e.ok("wrote %s: %d rows", args[0], res.Dataset.NumRows(table.Main))
			return nil
		},
	}
	return ccmd
}

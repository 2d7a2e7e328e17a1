// Package cli implements the mstransform command line: split a dataset by
// selection, merge partitions back together, and summarize a dataset.
package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mstransform/internal/config"
	"mstransform/internal/engine"
	"mstransform/internal/logger"
	"mstransform/internal/predicate"
)

// env is the state shared by every subcommand once flags are parsed.
type env struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	cfg        *config.Config
	log        logger.Logger
}

func (e *env) engine() *engine.Engine {
	return engine.New(engine.Options{
		Logger:    e.log.WithPrefix("engine"),
		Workers:   e.cfg.Workers,
		Predicate: predicate.Evaluator{},
	})
}

func (e *env) warn(format string, a ...interface{}) {
	color.New(color.FgYellow).Fprintf(e.stderr, format+"\n", a...)
}

func (e *env) ok(format string, a ...interface{}) {
	color.New(color.FgGreen).Fprintf(e.stdout, format+"\n", a...)
}

// NewRootCommand returns the mstransform command with all subcommands.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	e := &env{stdout: stdout, stderr: stderr}
	rc := &cobra.Command{
		Use:   "mstransform",
		Short: "Select, re-index and merge interferometric datasets",
		Long: `
mstransform splits a dataset by a selection of fields, spectral windows,
baselines, correlations and time, re-indexing every table so the result is
self-consistent, and merges spectral-window partitions back into one dataset.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(e.configPath, c.Flags())
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.New(stderr, cfg.LogLevel)
			return nil
		},
	}
	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)

	flags := rc.PersistentFlags()
	flags.StringVar(&e.configPath, "config", "", "config file (toml, yaml or json)")
	flags.String("log-level", "info", "debug, info, warn, error or off")
	flags.Int("workers", 0, "engine workers, 0 for one per CPU")

	rc.AddCommand(newSplitCommand(e))
	rc.AddCommand(newMergeCommand(e))
	rc.AddCommand(newSummaryCommand(e))
	return rc
}

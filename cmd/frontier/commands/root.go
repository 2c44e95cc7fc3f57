// Package commands implements the frontier command line.
package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/frontier/pkg/logger"
)

// rootOptions holds the global flags shared by every subcommand
type rootOptions struct {
	logLevel string
	verbose  bool
}

// logger builds the CLI logger. Logs go to stderr so reports can be piped.
func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	level := o.logLevel
	if o.verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})
}

// NewRootCmd builds the frontier command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "frontier",
		Short: "Monte Carlo portfolio simulation and selection",
		Long: `Frontier samples random long-only portfolios over an asset universe,
scores each by annualized return, risk and Sharpe ratio, and reports the
Max Sharpe Ratio, Max Return and Min Risk portfolios with their sector and
asset allocations.

Examples:
  frontier simulate --universe stocks_data.csv --prices closes.csv
  frontier simulate --trials 50000 --seed 42 --sampler dirichlet
  frontier import universe stocks_data.csv
  frontier import prices closes.csv`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")

	rootCmd.AddCommand(newSimulateCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))

	return rootCmd
}

// Execute runs the command tree. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

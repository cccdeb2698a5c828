// Package cli implements the stsctl command tree: a demonstration surface
// for the scheduler, not part of its core API.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"sts/internal/stslog"
)

var (
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd builds the root stsctl command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stsctl",
		Short:        "stsctl drives the static task scheduler from the command line",
		Long:         "stsctl loads or builds a schedule and runs it, for manual testing and benchmarking.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagLogLevel != "" {
				_ = os.Setenv("STS_LOG_LEVEL", flagLogLevel)
			}
			if flagLogFormat != "" {
				_ = os.Setenv("STS_LOG_FORMAT", flagLogFormat)
			}
			if flagLogLevel != "" || flagLogFormat != "" {
				stslog.Reload()
			}
		},
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (console, json)")

	root.AddCommand(
		newRunCmd(),
		newBenchCmd(),
		newDemoCmd(),
	)

	return root
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pivottriage/internal/logger"
)

// errRunFailed marks a run whose outcome status is failed. The outcome has
// already been reported, so main only sets the exit code.
var errRunFailed = errors.New("triage run failed")

type rootOptions struct {
	configPath string
	inputPath  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pivottriage",
		Short:         "Rank attacker pivots in exported Windows events and produce a triage decision",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to pivottriage.yml")

	analyze := newAnalyzeCmd(opts)
	analyze.Flags().StringVarP(&opts.inputPath, "input", "i", "", "Event export path (overrides input config, forces file mode)")
	baseline := newBaselineCmd(opts)
	baseline.Flags().StringVarP(&opts.inputPath, "input", "i", "", "Event export path (overrides input config, forces file mode)")

	root.AddCommand(analyze, baseline, newServeCmd(opts))
	return root
}

func main() {
	err := newRootCmd().Execute()
	logger.Sync()
	if err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "pivottriage: %v\n", err)
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pivottriage/internal/baseline"
	"pivottriage/internal/report"
)

func newBaselineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "baseline",
		Short: "Measure time from the first event to the first suspicious event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			c := &cfg.PivotTriage

			events, _, err := loadEvents(cmd.Context(), c, opts.inputPath)
			if err != nil {
				return fmt.Errorf("load events: %w", err)
			}
			res := baseline.Measure(events, baseline.Config{SuspiciousTerms: c.Baseline.SuspiciousTerms})
			return report.WriteBaseline(cmd.OutOrStdout(), res)
		},
	}
}

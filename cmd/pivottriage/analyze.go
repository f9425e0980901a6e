package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pivottriage/internal/logger"
	"pivottriage/internal/metrics"
	"pivottriage/internal/pipeline"
	"pivottriage/internal/report"
	"pivottriage/pkg/models"
)

const deliverAttempts = 3

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the triage pipeline over an event export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalyze(ctx, opts, cmd.OutOrStdout())
		},
	}
}

func runAnalyze(ctx context.Context, opts *rootOptions, stdout io.Writer) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	c := &cfg.PivotTriage

	engine, err := loadRules(c)
	if err != nil {
		return err
	}
	p, err := pipeline.New(pipeline.ConfigFrom(c), engine, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}

	events, stats, err := loadEvents(ctx, c, opts.inputPath)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	outcome := p.Run(events, stats)
	if err := report.WriteSummary(stdout, outcome); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	writer, err := newOutcomeWriter(&c.Output)
	if err != nil {
		return fmt.Errorf("create output writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Errorf("Failed to close output writer: %v", err)
		}
	}()
	if err := pipeline.Deliver(ctx, writer, outcome, deliverAttempts); err != nil {
		return err
	}

	if outcome.Status == models.StatusFailed {
		return errRunFailed
	}
	return nil
}

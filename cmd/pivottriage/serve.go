package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"pivottriage/internal/baseline"
	"pivottriage/internal/logger"
	"pivottriage/internal/metrics"
	"pivottriage/internal/pipeline"
	"pivottriage/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			c := &cfg.PivotTriage

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			engine, err := loadRules(c)
			if err != nil {
				return err
			}
			p, err := pipeline.New(pipeline.ConfigFrom(c), engine, metrics.New(reg))
			if err != nil {
				return err
			}

			var writer pipeline.OutcomeWriter
			if c.Output.Mode != "none" {
				writer, err = newOutcomeWriter(&c.Output)
				if err != nil {
					return err
				}
				defer writer.Close()
			}

			srv := server.New(server.Config{
				Addr:         c.Server.Addr,
				ReadTimeout:  c.Server.ReadTimeout,
				WriteTimeout: c.Server.WriteTimeout,
				MaxBodyBytes: c.Server.MaxBodyBytes,
			}, p, baseline.Config{SuspiciousTerms: c.Baseline.SuspiciousTerms}, reg, writer)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Infof("PivotTriage server starting")
			return srv.Run(ctx)
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"pivottriage/config"
	inputfile "pivottriage/internal/input/file"
	inputredis "pivottriage/internal/input/redis"
	"pivottriage/internal/logger"
	"pivottriage/internal/output/dossierhttp"
	"pivottriage/internal/output/dossierjson"
	"pivottriage/internal/output/dossiernats"
	"pivottriage/internal/pipeline"
	"pivottriage/internal/rules"
	"pivottriage/pkg/models"
)

const defaultConfigName = "pivottriage.yml"

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadConfig resolves and loads the configuration, falling back to built-in
// defaults when no file is found, then initializes logging.
func loadConfig(configArg string) (*config.Config, error) {
	path := findConfigFile(configArg)
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	l := cfg.PivotTriage.Logging
	if err := logger.Init(l.Enabled, l.Level, l.Format, l.File, l.Console); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if path == "" {
		logger.Warnf("No %s found; using built-in defaults", defaultConfigName)
	} else {
		logger.Infof("Config loaded from: %s", path)
	}
	return cfg, nil
}

// loadEvents reads the configured input. A non-empty override reads that
// file regardless of input.mode.
func loadEvents(ctx context.Context, c *config.PivotTriageConfig, override string) ([]models.RawEvent, models.IngestStats, error) {
	if override != "" {
		return inputfile.ReadEvents(override, "")
	}

	switch c.Input.Mode {
	case "file":
		return inputfile.ReadEvents(c.Input.File.Path, c.Input.File.Format)
	case "redis":
		r, err := inputredis.NewReader(inputredis.Config{
			Addr:     c.Input.Redis.Addr,
			Password: c.Input.Redis.Password,
			DB:       c.Input.Redis.DB,
			Key:      c.Input.Redis.Key,
			PageSize: c.Input.Redis.PageSize,
		})
		if err != nil {
			return nil, models.IngestStats{}, fmt.Errorf("create redis reader: %w", err)
		}
		defer r.Close()
		return r.ReadEvents(ctx)
	default:
		return nil, models.IngestStats{}, fmt.Errorf("unknown input mode: %s", c.Input.Mode)
	}
}

func loadRules(c *config.PivotTriageConfig) (rules.Engine, error) {
	if !c.Rules.Enabled {
		return nil, nil
	}
	engine, stats, err := rules.NewSigmaEngine(c.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load sigma rules from %s: %w", c.Rules.Path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; rule annotations are effectively disabled")
	}
	return engine, nil
}

func newOutcomeWriter(c *config.OutputConfig) (pipeline.OutcomeWriter, error) {
	switch c.Mode {
	case "file":
		w, err := dossierjson.NewWriter(c.File.Path)
		if err != nil {
			return nil, err
		}
		logger.Infof("Output mode: file (%s)", c.File.Path)
		return w, nil
	case "http":
		w, err := dossierhttp.NewWriter(dossierhttp.Config{
			URL:     c.HTTP.URL,
			Timeout: c.HTTP.Timeout,
			Headers: c.HTTP.Headers,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Output mode: http (%s)", c.HTTP.URL)
		return w, nil
	case "nats":
		w, err := dossiernats.NewWriter(dossiernats.Config{
			URL:     c.NATS.URL,
			Subject: c.NATS.Subject,
			Timeout: c.NATS.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Output mode: nats (%s %s)", c.NATS.URL, c.NATS.Subject)
		return w, nil
	case "none":
		return pipeline.NopWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown output mode: %s", c.Mode)
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	PivotTriage PivotTriageConfig `yaml:"pivottriage"`
}

// PivotTriageConfig is the project configuration.
type PivotTriageConfig struct {
	Input    InputConfig    `yaml:"input"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Manual   ManualConfig   `yaml:"manual"`
	Decision DecisionConfig `yaml:"decision"`
	Risk     RiskConfig     `yaml:"risk"`
	MTTR     MTTRConfig     `yaml:"mttr"`
	History  HistoryConfig  `yaml:"history"`
	Baseline BaselineConfig `yaml:"baseline"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Rules    RulesConfig    `yaml:"rules"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig controls where exported event records come from.
type InputConfig struct {
	Mode  string          `yaml:"mode"` // file|redis
	File  FileInputConfig `yaml:"file"`
	Redis RedisConfig     `yaml:"redis"`
}

// FileInputConfig reads JSONL or CSV exports, optionally gzip/zstd compressed.
type FileInputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // jsonl|csv, inferred from extension when empty
}

// RedisConfig controls Redis list input.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	PageSize int64  `yaml:"page_size"`
}

// SignalKeyword maps a high-signal keyword to an ATT&CK technique.
type SignalKeyword struct {
	Keyword       string `yaml:"keyword"`
	TechniqueID   string `yaml:"technique_id"`
	TechniqueName string `yaml:"technique_name"`
}

// ScoringConfig holds the static keyword tables.
type ScoringConfig struct {
	HighSignal   []SignalKeyword `yaml:"high_signal"`
	MediumSignal []string        `yaml:"medium_signal"`
	Noise        []string        `yaml:"noise"`
	HighWeight   int             `yaml:"high_weight"`
	MediumWeight int             `yaml:"medium_weight"`
	CacheSize    int             `yaml:"cache_size"`
}

// ManualConfig controls the simulated analyst.
type ManualConfig struct {
	PivotDelay      time.Duration `yaml:"pivot_delay"`
	MaxPivots       int           `yaml:"max_pivots"`
	SuspiciousTerms []string      `yaml:"suspicious_terms"`
}

// DecisionConfig controls ranking and decision bands.
type DecisionConfig struct {
	TopN         int `yaml:"top_n"`
	MinScore     int `yaml:"min_score"`
	HighCutoff   int `yaml:"high_cutoff"`
	MediumCutoff int `yaml:"medium_cutoff"`
}

// RiskConfig controls host risk weights and levels.
type RiskConfig struct {
	HighWeight   int `yaml:"high_weight"`
	MediumWeight int `yaml:"medium_weight"`
	LowWeight    int `yaml:"low_weight"`
	HighLevel    int `yaml:"high_level"`
	MediumLevel  int `yaml:"medium_level"`
}

// MTTRConfig controls the manual baseline and automated pivot cost.
type MTTRConfig struct {
	ManualMinutes      float64       `yaml:"manual_minutes"`
	DeriveManual       bool          `yaml:"derive_manual"`
	AutomatedPivotCost time.Duration `yaml:"automated_pivot_cost"`
}

// HistoryConfig controls the historical lookback.
type HistoryConfig struct {
	Lookback time.Duration `yaml:"lookback"`
}

// BaselineConfig controls the baseline timeline metric.
type BaselineConfig struct {
	SuspiciousTerms []string `yaml:"suspicious_terms"`
}

// PipelineConfig controls pipeline behavior.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// RulesConfig controls optional Sigma rule annotations.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig controls where outcomes are delivered.
type OutputConfig struct {
	Mode string           `yaml:"mode"` // file|http|nats|none
	File FileOutputConfig `yaml:"file"`
	HTTP HTTPOutputConfig `yaml:"http"`
	NATS NATSOutputConfig `yaml:"nats"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// NATSOutputConfig config for NATS publishing.
type NATSOutputConfig struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json|console
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file, then applies defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := seeded()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := seeded()
	ApplyDefaults(&cfg)
	return &cfg
}

// seeded returns a Config carrying the defaults of settings where zero is a
// meaningful value. YAML decoding leaves them alone unless the key is set, so
// an explicit zero survives.
func seeded() Config {
	var cfg Config
	c := &cfg.PivotTriage
	c.Decision.MinScore = 6
	c.Decision.HighCutoff = 15
	c.Decision.MediumCutoff = 8
	c.Risk.HighLevel = 15
	c.Risk.MediumLevel = 8
	c.MTTR.ManualMinutes = 22.0
	return cfg
}

// ApplyDefaults fills zero values. Keyword lists are only defaulted when the
// key is absent; an explicit empty list is kept. Score thresholds, risk
// levels and the manual baseline are seeded before decoding instead.
func ApplyDefaults(cfg *Config) {
	c := &cfg.PivotTriage

	if c.Input.Mode == "" {
		c.Input.Mode = "file"
	}
	if c.Input.File.Path == "" {
		c.Input.File.Path = "output/attack_events.csv"
	}
	if c.Input.Redis.Addr == "" {
		c.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Input.Redis.Key == "" {
		c.Input.Redis.Key = "pivottriage_events"
	}
	if c.Input.Redis.PageSize <= 0 {
		c.Input.Redis.PageSize = 1000
	}

	if c.Scoring.HighSignal == nil {
		c.Scoring.HighSignal = []SignalKeyword{
			{Keyword: "mimikatz", TechniqueID: "T1003", TechniqueName: "Credential Dumping"},
			{Keyword: "invoke-mimikatz", TechniqueID: "T1003", TechniqueName: "Credential Dumping"},
			{Keyword: "dumpcreds", TechniqueID: "T1003", TechniqueName: "Credential Dumping"},
		}
	}
	if c.Scoring.MediumSignal == nil {
		c.Scoring.MediumSignal = []string{"powershell", "cmd.exe", "rundll32"}
	}
	if c.Scoring.Noise == nil {
		c.Scoring.Noise = []string{"git.exe", "mklink", "atomic-red-team", "atomicredteam"}
	}
	if c.Scoring.HighWeight <= 0 {
		c.Scoring.HighWeight = 5
	}
	if c.Scoring.MediumWeight <= 0 {
		c.Scoring.MediumWeight = 2
	}
	if c.Scoring.CacheSize <= 0 {
		c.Scoring.CacheSize = 4096
	}

	if c.Manual.PivotDelay <= 0 {
		c.Manual.PivotDelay = 90 * time.Second
	}
	if c.Manual.MaxPivots <= 0 {
		c.Manual.MaxPivots = 20
	}
	if c.Manual.SuspiciousTerms == nil {
		c.Manual.SuspiciousTerms = []string{"atomic", "invoke-atomic", "powershell", "cmd.exe", "rundll32", "mimikatz"}
	}

	if c.Decision.TopN <= 0 {
		c.Decision.TopN = 3
	}

	if c.Risk.HighWeight <= 0 {
		c.Risk.HighWeight = 10
	}
	if c.Risk.MediumWeight <= 0 {
		c.Risk.MediumWeight = 5
	}
	if c.Risk.LowWeight <= 0 {
		c.Risk.LowWeight = 2
	}

	if c.MTTR.AutomatedPivotCost <= 0 {
		c.MTTR.AutomatedPivotCost = 90 * time.Second
	}

	if c.History.Lookback <= 0 {
		c.History.Lookback = 24 * time.Hour
	}

	if c.Baseline.SuspiciousTerms == nil {
		c.Baseline.SuspiciousTerms = []string{"mimikatz", "atomic", "invoke-atomic", "powershell", "cmd.exe", "rundll32"}
	}

	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}

	if c.Output.Mode == "" {
		c.Output.Mode = "file"
	}
	if c.Output.File.Path == "" {
		c.Output.File.Path = "output/incident_dossier.json"
	}
	if c.Output.HTTP.Timeout <= 0 {
		c.Output.HTTP.Timeout = 5 * time.Second
	}
	if c.Output.NATS.Subject == "" {
		c.Output.NATS.Subject = "pivottriage.outcomes"
	}
	if c.Output.NATS.Timeout <= 0 {
		c.Output.NATS.Timeout = 5 * time.Second
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 32 << 20
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	p := c.PivotTriage

	switch p.Input.Mode {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown input mode: %s", p.Input.Mode)
	}
	switch p.Output.Mode {
	case "file", "http", "nats", "none":
	default:
		return fmt.Errorf("unknown output mode: %s", p.Output.Mode)
	}
	for i, kw := range p.Scoring.HighSignal {
		if strings.TrimSpace(kw.Keyword) == "" {
			return fmt.Errorf("scoring.high_signal[%d]: keyword is empty", i)
		}
		if strings.TrimSpace(kw.TechniqueID) == "" {
			return fmt.Errorf("scoring.high_signal[%d]: technique_id is empty", i)
		}
	}
	if p.Decision.MinScore < 0 || p.Decision.MediumCutoff < 0 {
		return fmt.Errorf("decision.min_score and decision.medium_cutoff must not be negative")
	}
	if p.Decision.HighCutoff <= p.Decision.MediumCutoff {
		return fmt.Errorf("decision.high_cutoff (%d) must be greater than decision.medium_cutoff (%d)", p.Decision.HighCutoff, p.Decision.MediumCutoff)
	}
	if p.Risk.MediumLevel < 0 {
		return fmt.Errorf("risk.medium_level must not be negative")
	}
	if p.Risk.HighLevel <= p.Risk.MediumLevel {
		return fmt.Errorf("risk.high_level (%d) must be greater than risk.medium_level (%d)", p.Risk.HighLevel, p.Risk.MediumLevel)
	}
	if !p.MTTR.DeriveManual && p.MTTR.ManualMinutes < 0 {
		return fmt.Errorf("mttr.manual_minutes must not be negative")
	}
	if p.Rules.Enabled && strings.TrimSpace(p.Rules.Path) == "" {
		return fmt.Errorf("rules enabled but rules.path is empty")
	}
	return nil
}

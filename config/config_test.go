package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesReferenceConstants(t *testing.T) {
	cfg := Default().PivotTriage

	assert.Equal(t, 3, cfg.Decision.TopN)
	assert.Equal(t, 6, cfg.Decision.MinScore)
	assert.Equal(t, 15, cfg.Decision.HighCutoff)
	assert.Equal(t, 8, cfg.Decision.MediumCutoff)
	assert.Equal(t, 90*time.Second, cfg.Manual.PivotDelay)
	assert.Equal(t, 20, cfg.Manual.MaxPivots)
	assert.Equal(t, 90*time.Second, cfg.MTTR.AutomatedPivotCost)
	assert.Equal(t, 22.0, cfg.MTTR.ManualMinutes)
	assert.Equal(t, 24*time.Hour, cfg.History.Lookback)
	assert.Len(t, cfg.Scoring.HighSignal, 3)
	assert.Equal(t, []string{"powershell", "cmd.exe", "rundll32"}, cfg.Scoring.MediumSignal)
	require.NoError(t, Default().Validate())
}

func TestParseKeepsExplicitEmptyLists(t *testing.T) {
	cfg, err := Parse([]byte(`
pivottriage:
  scoring:
    medium_signal: []
    noise: []
  manual:
    pivot_delay: 2m
  history:
    lookback: 6h
`))
	require.NoError(t, err)

	assert.Empty(t, cfg.PivotTriage.Scoring.MediumSignal)
	assert.NotNil(t, cfg.PivotTriage.Scoring.MediumSignal)
	assert.Empty(t, cfg.PivotTriage.Scoring.Noise)
	assert.Len(t, cfg.PivotTriage.Scoring.HighSignal, 3)
	assert.Equal(t, 2*time.Minute, cfg.PivotTriage.Manual.PivotDelay)
	assert.Equal(t, 6*time.Hour, cfg.PivotTriage.History.Lookback)
}

func TestDeriveManualAcceptsZeroManualMinutes(t *testing.T) {
	cfg, err := Parse([]byte(`
pivottriage:
  mttr:
    derive_manual: true
    manual_minutes: 0
`))
	require.NoError(t, err)
	assert.True(t, cfg.PivotTriage.MTTR.DeriveManual)
	assert.Zero(t, cfg.PivotTriage.MTTR.ManualMinutes)
}

func TestParseKeepsExplicitZeroThresholds(t *testing.T) {
	cfg, err := Parse([]byte(`
pivottriage:
  decision:
    min_score: 0
    medium_cutoff: 0
  risk:
    medium_level: 0
  mttr:
    manual_minutes: 0
`))
	require.NoError(t, err)

	p := cfg.PivotTriage
	assert.Zero(t, p.Decision.MinScore)
	assert.Zero(t, p.Decision.MediumCutoff)
	assert.Equal(t, 15, p.Decision.HighCutoff)
	assert.Zero(t, p.Risk.MediumLevel)
	assert.Equal(t, 15, p.Risk.HighLevel)
	assert.Zero(t, p.MTTR.ManualMinutes)
}

func TestParseDefaultsAbsentThresholds(t *testing.T) {
	cfg, err := Parse([]byte("pivottriage:\n  input:\n    mode: file\n"))
	require.NoError(t, err)

	p := cfg.PivotTriage
	assert.Equal(t, 6, p.Decision.MinScore)
	assert.Equal(t, 8, p.Decision.MediumCutoff)
	assert.Equal(t, 8, p.Risk.MediumLevel)
	assert.Equal(t, 22.0, p.MTTR.ManualMinutes)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"overlapping bands", "pivottriage:\n  decision:\n    high_cutoff: 8\n    medium_cutoff: 8\n"},
		{"unknown input", "pivottriage:\n  input:\n    mode: kafka\n"},
		{"unknown output", "pivottriage:\n  output:\n    mode: s3\n"},
		{"keyword without technique", "pivottriage:\n  scoring:\n    high_signal:\n      - keyword: mimikatz\n"},
		{"rules without path", "pivottriage:\n  rules:\n    enabled: true\n"},
		{"negative manual", "pivottriage:\n  mttr:\n    manual_minutes: -1\n"},
		{"negative min score", "pivottriage:\n  decision:\n    min_score: -1\n"},
		{"negative risk level", "pivottriage:\n  risk:\n    medium_level: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pivottriage.yml")
	require.NoError(t, os.WriteFile(path, []byte("pivottriage:\n  decision:\n    top_n: 5\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PivotTriage.Decision.TopN)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "pivottriage.example.yml"))
	require.NoError(t, err)

	def := Default().PivotTriage
	got := cfg.PivotTriage
	assert.Equal(t, def.Scoring, got.Scoring)
	assert.Equal(t, def.Decision, got.Decision)
	assert.Equal(t, def.Risk, got.Risk)
	assert.Equal(t, def.MTTR, got.MTTR)
	assert.Equal(t, def.History, got.History)
	assert.Equal(t, def.Manual, got.Manual)
}

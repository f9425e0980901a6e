package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivottriage/pkg/models"
)

func TestWriteSummaryDecided(t *testing.T) {
	seen := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	out := &models.Outcome{
		Status:     models.StatusDecided,
		Ingest:     models.IngestStats{Total: 5, Skipped: 1},
		Candidates: 3,
		Record: &models.DecisionRecord{
			IncidentID: "0b7c",
			Decision:   models.DecisionEscalate,
			Confidence: models.ConfidenceHigh,
			HostRisk:   models.HostRisk{Score: 10, Level: models.RiskMedium},
			PrimaryIndicator: models.PivotCandidate{
				ProcessName: "powershell.exe",
				CommandLine: "invoke-mimikatz",
				Score:       16,
				Reasons:     []string{"high-signal: mimikatz", "medium-signal: powershell"},
				Techniques:  []models.Technique{{ID: "T1003"}},
			},
			HistoricalContext:  models.HistoricalContext{Window: "24h0m0s", Count: 2, FirstSeen: &seen, LastSeen: &seen},
			RecommendedActions: []string{"Isolate affected host"},
			RuleMatches:        []models.RuleMatch{{Name: "Mimikatz Command Line", Severity: "high", Count: 2}},
			MTTR:               models.MTTR{ManualMinutes: 22, AutomatedMinutes: 4.5, ReductionPercent: 79.55},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, out))
	text := buf.String()
	assert.Contains(t, text, "Decision           : ESCALATE")
	assert.Contains(t, text, "Primary Technique  : T1003")
	assert.Contains(t, text, "Why                : high-signal: mimikatz, medium-signal: powershell")
	assert.Contains(t, text, "HISTORICAL CONTEXT (last 24h0m0s)")
	assert.Contains(t, text, "First Seen         : 2024-03-01T09:30:00Z")
	assert.Contains(t, text, "- Mimikatz Command Line [high] x2")
	assert.Contains(t, text, "- Isolate affected host")
	assert.Contains(t, text, "Reduction          : 79.55%")
}

func TestWriteSummaryNoSignal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, &models.Outcome{Status: models.StatusNoSignal, Message: "LOW confidence — no data"}))
	assert.Contains(t, buf.String(), "Result             : LOW confidence — no data")
	assert.NotContains(t, buf.String(), "TOP INDICATOR")
}

func TestWriteBaseline(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pivot := start.Add(4 * time.Minute)
	minutes := 4.0

	var buf bytes.Buffer
	require.NoError(t, WriteBaseline(&buf, models.BaselineResult{Events: 3, SuspiciousEvents: 1, AlertStart: &start, FirstPivot: &pivot, MTTRMinutes: &minutes}))
	assert.Contains(t, buf.String(), "Baseline MTTR      : 4.00 minutes")

	buf.Reset()
	require.NoError(t, WriteBaseline(&buf, models.BaselineResult{Warning: "timeline is empty after filtering"}))
	assert.Contains(t, buf.String(), "Baseline MTTR      : n/a")
	assert.Contains(t, buf.String(), "Warning            : timeline is empty after filtering")
}

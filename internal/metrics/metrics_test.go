package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"pivottriage/pkg/models"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveIngest(models.IngestStats{Total: 10, Skipped: 2, Filtered: 3})
	m.ObserveCandidates(StateNoise, 2)
	m.ObserveCandidates(StateSelected, 3)
	m.ObserveCandidates(StateSelected, 0)
	m.ObserveCacheHits(4)
	m.ObserveRuleMatches([]models.RuleMatch{{ID: "a", Count: 2}, {ID: "b", Count: 1}})
	m.ObserveOutcome(&models.Outcome{
		Status: models.StatusDecided,
		Record: &models.DecisionRecord{Decision: models.DecisionEscalate},
	}, 15*time.Millisecond)
	m.ObserveOutcome(&models.Outcome{Status: models.StatusNoSignal}, time.Millisecond)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.RecordsIngested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsFiltered))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Candidates.WithLabelValues(StateNoise)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Candidates.WithLabelValues(StateSelected)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ScoreCacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RuleMatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("decided")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("no_signal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("ESCALATE")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIngest(models.IngestStats{Total: 1})
		m.ObserveCandidates(StateScored, 1)
		m.ObserveCacheHits(1)
		m.ObserveRuleMatches([]models.RuleMatch{{Count: 1}})
		m.ObserveOutcome(&models.Outcome{Status: models.StatusFailed}, time.Second)
	})
}

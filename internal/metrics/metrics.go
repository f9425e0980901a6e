// Package metrics exposes pipeline counters on a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pivottriage/pkg/models"
)

const namespace = "pivottriage"

// Candidate states.
const (
	StateNoise          = "noise"
	StateScored         = "scored"
	StateBelowThreshold = "below_threshold"
	StateSelected       = "selected"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	RecordsIngested prometheus.Counter
	RecordsSkipped  prometheus.Counter
	RecordsFiltered prometheus.Counter
	Candidates      *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	ScoreCacheHits  prometheus.Counter
	RuleMatches     prometheus.Counter
	RunDuration     prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RecordsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_ingested_total",
			Help:      "Event records read from input",
		}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Malformed event records dropped",
		}),
		RecordsFiltered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_filtered_total",
			Help:      "Event records of kinds outside analysis",
		}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Pivot candidates by state",
		}, []string{"state"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Pipeline runs by outcome status",
		}, []string{"status"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Triage decisions by verdict",
		}, []string{"decision"}),
		ScoreCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_cache_hits_total",
			Help:      "Scorer memo cache hits",
		}),
		RuleMatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_matches_total",
			Help:      "Detection rule hits on raw events",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) ObserveIngest(stats models.IngestStats) {
	if m == nil {
		return
	}
	m.RecordsIngested.Add(float64(stats.Total))
	m.RecordsSkipped.Add(float64(stats.Skipped))
	m.RecordsFiltered.Add(float64(stats.Filtered))
}

func (m *Metrics) ObserveCandidates(state string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Candidates.WithLabelValues(state).Add(float64(n))
}

func (m *Metrics) ObserveCacheHits(n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.ScoreCacheHits.Add(float64(n))
}

func (m *Metrics) ObserveRuleMatches(matches []models.RuleMatch) {
	if m == nil {
		return
	}
	for _, r := range matches {
		m.RuleMatches.Add(float64(r.Count))
	}
}

// ObserveOutcome records the status, the decision when one was made, and the
// run duration.
func (m *Metrics) ObserveOutcome(out *models.Outcome, elapsed time.Duration) {
	if m == nil || out == nil {
		return
	}
	m.Outcomes.WithLabelValues(string(out.Status)).Inc()
	if out.Record != nil {
		m.Decisions.WithLabelValues(string(out.Record.Decision)).Inc()
	}
	m.RunDuration.Observe(elapsed.Seconds())
}

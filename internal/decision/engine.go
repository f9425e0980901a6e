package decision

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"pivottriage/pkg/models"
)

var (
	// ErrEmptyCandidateSet means no candidate survived noise and score filtering.
	ErrEmptyCandidateSet = errors.New("empty candidate set")
	// ErrUndefinedReduction means the manual baseline is zero or negative.
	ErrUndefinedReduction = errors.New("undefined mttr reduction")
)

// Config controls ranking, decision bands and automated pivot cost.
type Config struct {
	TopN         int
	MinScore     int
	HighCutoff   int
	MediumCutoff int
	PivotCost    time.Duration
}

// Result is the ranked candidate set and the verdict derived from it.
type Result struct {
	Ranked     []models.PivotCandidate
	Selected   []models.PivotCandidate
	MaxScore   int
	Decision   models.Decision
	Confidence models.Confidence
}

// Engine ranks scored candidates and maps the best score to a decision.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and creates an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("decision top_n must be positive, got %d", cfg.TopN)
	}
	if cfg.HighCutoff <= cfg.MediumCutoff {
		return nil, fmt.Errorf("decision high cutoff %d must exceed medium cutoff %d", cfg.HighCutoff, cfg.MediumCutoff)
	}
	if cfg.PivotCost < 0 {
		return nil, fmt.Errorf("decision pivot cost must not be negative")
	}
	return &Engine{cfg: cfg}, nil
}

// Rank drops noise and below-threshold candidates and orders the rest by
// score descending, earliest first sighting first on ties.
func (e *Engine) Rank(candidates []models.PivotCandidate) []models.PivotCandidate {
	ranked := make([]models.PivotCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.IsNoise || c.Score < e.cfg.MinScore {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.FirstSeen.Equal(b.FirstSeen) {
			return a.FirstSeen.Before(b.FirstSeen)
		}
		if a.ProcessName != b.ProcessName {
			return a.ProcessName < b.ProcessName
		}
		return a.CommandLine < b.CommandLine
	})
	return ranked
}

// Decide ranks candidates, keeps the top N and classifies the maximum score.
func (e *Engine) Decide(candidates []models.PivotCandidate) (*Result, error) {
	ranked := e.Rank(candidates)
	if len(ranked) == 0 {
		return nil, ErrEmptyCandidateSet
	}

	n := e.cfg.TopN
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := ranked[:n:n]

	maxScore := 0
	for _, c := range selected {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	d, conf := e.Classify(maxScore)
	return &Result{
		Ranked:     ranked,
		Selected:   selected,
		MaxScore:   maxScore,
		Decision:   d,
		Confidence: conf,
	}, nil
}

// Classify maps a score onto the non-overlapping decision bands.
func (e *Engine) Classify(score int) (models.Decision, models.Confidence) {
	switch {
	case score >= e.cfg.HighCutoff:
		return models.DecisionEscalate, models.ConfidenceHigh
	case score >= e.cfg.MediumCutoff:
		return models.DecisionInvestigateFurther, models.ConfidenceMedium
	default:
		return models.DecisionLikelyFalsePositive, models.ConfidenceLow
	}
}

// MTTR computes the automated time-to-decision for selected pivots and its
// reduction against the manual baseline, rounded to two decimals.
func (e *Engine) MTTR(manualMinutes float64, selected int) (models.MTTR, error) {
	if manualMinutes <= 0 || math.IsNaN(manualMinutes) {
		return models.MTTR{}, fmt.Errorf("%w: manual baseline is %.2f minutes", ErrUndefinedReduction, manualMinutes)
	}
	automated := float64(selected) * e.cfg.PivotCost.Seconds() / 60
	reduction := (manualMinutes - automated) / manualMinutes * 100
	return models.MTTR{
		ManualMinutes:    manualMinutes,
		AutomatedMinutes: automated,
		ReductionPercent: math.Round(reduction*100) / 100,
	}, nil
}

// RecommendedActions returns the curated next steps for a decision.
func RecommendedActions(d models.Decision) []string {
	switch d {
	case models.DecisionEscalate:
		return []string{
			"Isolate affected host",
			"Collect LSASS-related telemetry",
			"Review recent authentication failures",
			"Check lateral movement indicators",
		}
	case models.DecisionInvestigateFurther:
		return []string{
			"Review parent process tree",
			"Correlate with network connections",
			"Check user activity context",
		}
	default:
		return []string{
			"Monitor for recurrence",
			"Document justification for closure",
		}
	}
}

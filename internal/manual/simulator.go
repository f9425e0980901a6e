package manual

import (
	"errors"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

// ErrNoCandidates is returned when there is nothing for the analyst to review.
var ErrNoCandidates = errors.New("manual simulation: no candidates to review")

// Config controls the simulated analyst.
type Config struct {
	PivotDelay      time.Duration
	MaxPivots       int
	SuspiciousTerms []string
}

// Pivot is one candidate as visited by the analyst.
type Pivot struct {
	ProcessName string    `json:"process"`
	CommandLine string    `json:"command"`
	FirstSeen   time.Time `json:"first_seen"`
	Suspicious  bool      `json:"suspicious"`
	PivotTime   time.Time `json:"pivot_time"`
}

// Result is the simulated review sequence and its MTTR.
type Result struct {
	Pivots       []Pivot
	AlertStart   time.Time
	DecisionTime time.Time
	MTTRMinutes  float64
}

// Summary converts the result for the decision record.
func (r *Result) Summary() *models.ManualSummary {
	return &models.ManualSummary{
		PivotsReviewed: len(r.Pivots),
		AlertStart:     r.AlertStart,
		DecisionTime:   r.DecisionTime,
		MTTRMinutes:    r.MTTRMinutes,
	}
}

// Simulate models an analyst who reviews suspicious candidates first, at most
// MaxPivots of them, spending PivotDelay on each. Candidates are expected in
// noise-reducer order.
func Simulate(candidates []models.PivotCandidate, cfg Config) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if cfg.MaxPivots <= 0 {
		return nil, errors.New("manual simulation: max pivots must be positive")
	}

	terms := make([]string, 0, len(cfg.SuspiciousTerms))
	for _, t := range cfg.SuspiciousTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}

	var suspicious, benign []Pivot
	for i := range candidates {
		c := &candidates[i]
		p := Pivot{ProcessName: c.ProcessName, CommandLine: c.CommandLine, FirstSeen: c.FirstSeen}
		p.Suspicious = containsAny(c.Text(), terms)
		if p.Suspicious {
			suspicious = append(suspicious, p)
		} else {
			benign = append(benign, p)
		}
	}

	ordered := append(suspicious, benign...)
	if len(ordered) > cfg.MaxPivots {
		ordered = ordered[:cfg.MaxPivots]
	}

	pivots := make([]Pivot, 0, len(ordered))
	var prev time.Time
	for i, p := range ordered {
		if i == 0 {
			p.PivotTime = p.FirstSeen
		} else {
			p.PivotTime = prev.Add(cfg.PivotDelay)
		}
		prev = p.PivotTime
		pivots = append(pivots, p)
	}

	res := &Result{
		Pivots:       pivots,
		AlertStart:   pivots[0].FirstSeen,
		DecisionTime: pivots[len(pivots)-1].PivotTime,
	}
	res.MTTRMinutes = res.DecisionTime.Sub(res.AlertStart).Minutes()
	return res, nil
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pivottriage/config"
	"pivottriage/internal/baseline"
	"pivottriage/internal/decision"
	"pivottriage/internal/history"
	"pivottriage/internal/logger"
	"pivottriage/internal/manual"
	"pivottriage/internal/metrics"
	"pivottriage/internal/noise"
	"pivottriage/internal/risk"
	"pivottriage/internal/rules"
	"pivottriage/internal/scoring"
	"pivottriage/pkg/models"
)

// NoSignalMessage is reported when no candidate survives filtering.
const NoSignalMessage = "LOW confidence — no data"

var incidentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("pivottriage/incident"))

// Config carries the settings of every stage.
type Config struct {
	Scoring         scoring.Config
	Decision        decision.Config
	Manual          manual.Config
	Risk            risk.Config
	Baseline        baseline.Config
	HistoryLookback time.Duration
	ManualMinutes   float64
	DeriveManual    bool
}

// ConfigFrom maps the file configuration onto the stage settings.
func ConfigFrom(c *config.PivotTriageConfig) Config {
	high := make([]scoring.Keyword, 0, len(c.Scoring.HighSignal))
	for _, kw := range c.Scoring.HighSignal {
		high = append(high, scoring.Keyword{Keyword: kw.Keyword, TechniqueID: kw.TechniqueID, TechniqueName: kw.TechniqueName})
	}
	return Config{
		Scoring: scoring.Config{
			HighSignal:   high,
			MediumSignal: c.Scoring.MediumSignal,
			Noise:        c.Scoring.Noise,
			HighWeight:   c.Scoring.HighWeight,
			MediumWeight: c.Scoring.MediumWeight,
			CacheSize:    c.Scoring.CacheSize,
			Workers:      c.Pipeline.Workers,
		},
		Decision: decision.Config{
			TopN:         c.Decision.TopN,
			MinScore:     c.Decision.MinScore,
			HighCutoff:   c.Decision.HighCutoff,
			MediumCutoff: c.Decision.MediumCutoff,
			PivotCost:    c.MTTR.AutomatedPivotCost,
		},
		Manual: manual.Config{
			PivotDelay:      c.Manual.PivotDelay,
			MaxPivots:       c.Manual.MaxPivots,
			SuspiciousTerms: c.Manual.SuspiciousTerms,
		},
		Risk: risk.Config{
			HighScore:    c.Decision.HighCutoff,
			MediumScore:  c.Decision.MediumCutoff,
			HighWeight:   c.Risk.HighWeight,
			MediumWeight: c.Risk.MediumWeight,
			LowWeight:    c.Risk.LowWeight,
			HighLevel:    c.Risk.HighLevel,
			MediumLevel:  c.Risk.MediumLevel,
		},
		Baseline:        baseline.Config{SuspiciousTerms: c.Baseline.SuspiciousTerms},
		HistoryLookback: c.History.Lookback,
		ManualMinutes:   c.MTTR.ManualMinutes,
		DeriveManual:    c.MTTR.DeriveManual,
	}
}

// Pipeline turns one batch of events into a triage outcome.
type Pipeline struct {
	cfg      Config
	scorer   *scoring.Scorer
	engine   *decision.Engine
	resolver *history.Resolver
	rules    rules.Engine
	metrics  *metrics.Metrics
}

// New builds the stages. rulesEngine and m may be nil.
func New(cfg Config, rulesEngine rules.Engine, m *metrics.Metrics) (*Pipeline, error) {
	scorer, err := scoring.NewScorer(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}
	engine, err := decision.NewEngine(cfg.Decision)
	if err != nil {
		return nil, fmt.Errorf("create decision engine: %w", err)
	}
	resolver, err := history.NewResolver(cfg.HistoryLookback)
	if err != nil {
		return nil, fmt.Errorf("create history resolver: %w", err)
	}
	if rulesEngine == nil {
		rulesEngine = &rules.NoopEngine{}
	}
	return &Pipeline{
		cfg:      cfg,
		scorer:   scorer,
		engine:   engine,
		resolver: resolver,
		rules:    rulesEngine,
		metrics:  m,
	}, nil
}

// Run analyzes events. stats carries what the reader counted; filtered kinds
// are counted here. Run never fails: problems are reported in the outcome.
func (p *Pipeline) Run(events []models.RawEvent, stats models.IngestStats) *models.Outcome {
	started := time.Now()

	if stats.Total == 0 {
		stats.Total = len(events) + stats.Skipped
	}
	recognized := models.FilterRecognized(events)
	stats.Filtered += len(events) - len(recognized)

	out := &models.Outcome{
		Ingest:   stats,
		Baseline: baseline.Measure(recognized, p.cfg.Baseline),
	}
	p.metrics.ObserveIngest(stats)

	candidates, hits := p.scorer.ScoreAll(noise.Reduce(recognized))
	p.metrics.ObserveCacheHits(hits)

	out.Candidates = len(candidates)
	for _, c := range candidates {
		if c.IsNoise {
			out.Noise++
		}
	}
	p.metrics.ObserveCandidates(metrics.StateNoise, out.Noise)
	p.metrics.ObserveCandidates(metrics.StateScored, out.Candidates-out.Noise)

	p.decide(out, recognized, candidates)

	elapsed := time.Since(started)
	p.metrics.ObserveOutcome(out, elapsed)
	logger.Infof("Triage finished: status=%s events=%d candidates=%d noise=%d elapsed=%s",
		out.Status, len(recognized), out.Candidates, out.Noise, elapsed)
	return out
}

func (p *Pipeline) decide(out *models.Outcome, events []models.RawEvent, candidates []models.PivotCandidate) {
	res, err := p.engine.Decide(candidates)
	if errors.Is(err, decision.ErrEmptyCandidateSet) {
		out.Status = models.StatusNoSignal
		out.ErrorKind = models.ErrorKindEmptyCandidateSet
		out.Message = NoSignalMessage
		out.Confidence = models.ConfidenceLow
		p.metrics.ObserveCandidates(metrics.StateBelowThreshold, out.Candidates-out.Noise)
		return
	}
	p.metrics.ObserveCandidates(metrics.StateBelowThreshold, out.Candidates-out.Noise-len(res.Ranked))
	p.metrics.ObserveCandidates(metrics.StateSelected, len(res.Selected))

	manualMinutes := p.cfg.ManualMinutes
	var summary *models.ManualSummary
	if p.cfg.DeriveManual {
		sim, err := manual.Simulate(candidates, p.cfg.Manual)
		if err != nil {
			p.fail(out, fmt.Errorf("%w: %v", decision.ErrUndefinedReduction, err))
			return
		}
		summary = sim.Summary()
		manualMinutes = sim.MTTRMinutes
	}

	mttr, err := p.engine.MTTR(manualMinutes, len(res.Selected))
	if err != nil {
		p.fail(out, err)
		return
	}

	primary := res.Selected[0]
	command := primary.CommandLine
	if command == models.UnknownField {
		command = ""
	}
	matches := rules.Annotate(p.rules, events)
	p.metrics.ObserveRuleMatches(matches)

	out.Status = models.StatusDecided
	out.Confidence = res.Confidence
	out.Record = &models.DecisionRecord{
		IncidentID:         IncidentID(res.Selected),
		Decision:           res.Decision,
		Confidence:         res.Confidence,
		MaxScore:           res.MaxScore,
		HostRisk:           risk.Aggregate(res.Selected, p.cfg.Risk),
		PrimaryIndicator:   primary,
		SelectedPivots:     res.Selected,
		HistoricalContext:  p.resolver.Resolve(events, command, primary.FirstSeen),
		MitreTechniques:    unionTechniques(res.Selected),
		RecommendedActions: decision.RecommendedActions(res.Decision),
		RuleMatches:        matches,
		Manual:             summary,
		MTTR:               mttr,
	}
}

func (p *Pipeline) fail(out *models.Outcome, err error) {
	out.Status = models.StatusFailed
	out.ErrorKind = models.ErrorKindUndefinedReduction
	out.Message = err.Error()
	logger.Errorf("Triage failed: %v", err)
}

// IncidentID derives a stable identifier from the selected candidates.
func IncidentID(selected []models.PivotCandidate) string {
	var b strings.Builder
	for _, c := range selected {
		b.WriteString(c.Key())
		b.WriteByte('\x00')
		b.WriteString(c.FirstSeen.UTC().Format(time.RFC3339Nano))
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(incidentNamespace, []byte(b.String())).String()
}

func unionTechniques(selected []models.PivotCandidate) []models.Technique {
	seen := make(map[string]struct{})
	out := []models.Technique{}
	for _, c := range selected {
		for _, t := range c.Techniques {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	scoring.SortTechniques(out)
	return out
}

// Deliver writes the outcome, retrying up to attempts times with a one
// second pause between tries.
func Deliver(ctx context.Context, w OutcomeWriter, outcome *models.Outcome, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = w.WriteOutcome(outcome); err == nil {
			return nil
		}
		logger.Errorf("Failed to write outcome (attempt %d/%d): %v", i+1, attempts, err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("write outcome: %w", err)
}

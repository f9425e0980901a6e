package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

const width = 55

// WriteSummary prints the incident summary for an outcome.
func WriteSummary(w io.Writer, out *models.Outcome) error {
	p := &printer{w: w}
	p.rule("=")
	p.line("               INCIDENT SUMMARY")
	p.rule("=")
	p.field("Status", string(out.Status))
	p.field("Events", fmt.Sprintf("%d (skipped %d, filtered %d)", out.Ingest.Total, out.Ingest.Skipped, out.Ingest.Filtered))
	p.field("Candidates", fmt.Sprintf("%d (noise %d)", out.Candidates, out.Noise))

	rec := out.Record
	if rec == nil {
		if out.Message != "" {
			p.field("Result", out.Message)
		}
		p.rule("=")
		return p.err
	}

	p.field("Incident", rec.IncidentID)
	p.field("Decision", string(rec.Decision))
	p.field("Confidence", string(rec.Confidence))
	p.field("Host Risk Level", string(rec.HostRisk.Level))
	p.field("Host Risk Score", fmt.Sprint(rec.HostRisk.Score))
	p.field("Primary Technique", techniqueIDs(rec.PrimaryIndicator.Techniques))

	p.section("TOP INDICATOR")
	p.field("Process", rec.PrimaryIndicator.ProcessName)
	p.field("Command", rec.PrimaryIndicator.CommandLine)
	p.field("Score", fmt.Sprint(rec.PrimaryIndicator.Score))
	p.field("Why", strings.Join(rec.PrimaryIndicator.Reasons, ", "))

	h := rec.HistoricalContext
	p.section(fmt.Sprintf("HISTORICAL CONTEXT (last %s)", h.Window))
	p.field("Occurrences", fmt.Sprint(h.Count))
	p.field("First Seen", formatTime(h.FirstSeen))
	p.field("Last Seen", formatTime(h.LastSeen))

	if len(rec.RuleMatches) > 0 {
		p.section("RULE MATCHES")
		for _, m := range rec.RuleMatches {
			p.line(fmt.Sprintf("- %s [%s] x%d", m.Name, m.Severity, m.Count))
		}
	}

	p.section("RECOMMENDED NEXT ACTIONS")
	for _, a := range rec.RecommendedActions {
		p.line("- " + a)
	}

	p.section("MTTR IMPACT")
	p.field("Manual MTTR", fmt.Sprintf("%.2f minutes", rec.ManualMinutes))
	p.field("Automated MTTR", fmt.Sprintf("%.2f minutes", rec.AutomatedMinutes))
	p.field("Reduction", fmt.Sprintf("%.2f%%", rec.ReductionPercent))
	p.rule("=")
	return p.err
}

// WriteBaseline prints the baseline timeline metric.
func WriteBaseline(w io.Writer, b models.BaselineResult) error {
	p := &printer{w: w}
	p.line("=== BASELINE INVESTIGATION METRICS ===")
	p.field("Events", fmt.Sprintf("%d (suspicious %d)", b.Events, b.SuspiciousEvents))
	p.field("Alert start", formatTime(b.AlertStart))
	p.field("First pivot", formatTime(b.FirstPivot))
	if b.MTTRMinutes != nil {
		p.field("Baseline MTTR", fmt.Sprintf("%.2f minutes", *b.MTTRMinutes))
	} else {
		p.field("Baseline MTTR", "n/a")
	}
	if b.Warning != "" {
		p.field("Warning", b.Warning)
	}
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) rule(ch string) {
	p.line(strings.Repeat(ch, width))
}

func (p *printer) section(title string) {
	p.line("")
	p.rule("-")
	p.line(title)
	p.rule("-")
}

func (p *printer) field(name, value string) {
	p.line(fmt.Sprintf("%-19s: %s", name, value))
}

func techniqueIDs(ts []models.Technique) string {
	if len(ts) == 0 {
		return "none"
	}
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.ID)
	}
	return strings.Join(ids, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.UTC().Format(time.RFC3339)
}

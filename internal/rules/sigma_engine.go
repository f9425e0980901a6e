package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"pivottriage/pkg/models"
)

var (
	attackTechnique = regexp.MustCompile(`^t\d{4}(?:\.\d{3})?$`)
	attackObject    = regexp.MustCompile(`^[gst]\d{4}`)
)

type loadedRule struct {
	eval  *sigmaevaluator.RuleEvaluator
	match models.RuleMatch
}

// SigmaEngine evaluates Sigma rules against single exported events.
type SigmaEngine struct {
	rules []loadedRule
}

// NewSigmaEngine loads the rules under path, a YAML file or a directory.
// Rules that fail to parse, target another log source or need more than one
// event are skipped and counted in the returned stats.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	root, err := filepath.Abs(path)
	if err != nil {
		return nil, stats, fmt.Errorf("resolve rule path: %w", err)
	}
	files, err := ruleFiles(root)
	if err != nil {
		return nil, stats, err
	}
	stats.TotalFiles = len(files)

	engine := &SigmaEngine{}
	for _, f := range files {
		rule, err := readRule(f)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		switch judge(rule) {
		case wrongLogsource:
			stats.SkippedDatasource++
		case needsCorrelation:
			stats.SkippedComplex++
		default:
			engine.rules = append(engine.rules, loadedRule{
				eval:  sigmaevaluator.ForRule(rule),
				match: describe(rule),
			})
			stats.Loaded++
		}
	}
	return engine, stats, nil
}

// Apply returns one match per rule that fires on event. Evaluation errors
// count as no match.
func (e *SigmaEngine) Apply(event models.RawEvent) []models.RuleMatch {
	if e.Len() == 0 {
		return nil
	}

	fields := eventFields(event)
	var out []models.RuleMatch
	for _, r := range e.rules {
		res, err := r.eval.Matches(context.Background(), fields)
		if err != nil || !res.Match {
			continue
		}
		m := r.match
		m.Count = 1
		out = append(out, m)
	}
	return out
}

// Len returns the number of loaded rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// eventFields exposes an event under the field names Windows Sigma rules
// use. The process image is published under its Sysmon and Security names.
func eventFields(ev models.RawEvent) map[string]interface{} {
	fields := map[string]interface{}{"EventID": ev.EventID}
	set := func(v string, names ...string) {
		if v == "" {
			return
		}
		for _, n := range names {
			fields[n] = v
		}
	}
	set(ev.CommandLine, "CommandLine")
	set(ev.ProcessName, "Image", "NewProcessName", "ProcessName")
	set(ev.ScriptBlockText, "ScriptBlockText")
	set(ev.Computer, "Computer")
	return fields
}

// describe builds the annotation a rule contributes. Rules without an id are
// keyed by title; a missing level reads as medium.
func describe(rule sigma.Rule) models.RuleMatch {
	m := models.RuleMatch{
		ID:       strings.TrimSpace(rule.ID),
		Name:     strings.TrimSpace(rule.Title),
		Severity: norm(rule.Level),
	}
	if m.ID == "" {
		m.ID = m.Name
	}
	if m.Severity == "" {
		m.Severity = "medium"
	}
	m.Tactic, m.Technique = parseAttackTags(rule.Tags)
	return m
}

// parseAttackTags returns the first ATT&CK tactic and technique tags, with
// tactics dash-separated and technique IDs upper-cased.
func parseAttackTags(tags []string) (tactic, technique string) {
	for _, tag := range tags {
		name, ok := strings.CutPrefix(norm(tag), "attack.")
		if !ok {
			continue
		}
		switch {
		case attackTechnique.MatchString(name):
			if technique == "" {
				technique = strings.ToUpper(name)
			}
		case attackObject.MatchString(name):
			// group, software or malformed technique reference
		default:
			if tactic == "" {
				tactic = strings.ReplaceAll(name, "_", "-")
			}
		}
	}
	return tactic, technique
}

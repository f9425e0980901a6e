package rules

import (
	"sort"

	"pivottriage/pkg/models"
)

// Engine applies detection rules to a single event.
type Engine interface {
	Apply(event models.RawEvent) []models.RuleMatch
}

// NoopEngine matches nothing.
type NoopEngine struct{}

// Apply returns no matches.
func (n *NoopEngine) Apply(event models.RawEvent) []models.RuleMatch {
	return nil
}

// Annotate runs the engine over every event and aggregates matches per rule,
// ordered by rule ID then name.
func Annotate(engine Engine, events []models.RawEvent) []models.RuleMatch {
	if engine == nil {
		return nil
	}

	byRule := make(map[string]*models.RuleMatch)
	for _, ev := range events {
		for _, m := range engine.Apply(ev) {
			key := m.ID + "\x00" + m.Name
			agg, ok := byRule[key]
			if !ok {
				m := m
				m.Count = 0
				agg = &m
				byRule[key] = agg
			}
			agg.Count++
		}
	}
	if len(byRule) == 0 {
		return nil
	}

	out := make([]models.RuleMatch, 0, len(byRule))
	for _, m := range byRule {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

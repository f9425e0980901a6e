package noise

import (
	"sort"
	"strings"

	"pivottriage/pkg/models"
)

type groupKey struct {
	process string
	command string
}

// Reduce groups events into pivot candidates keyed by (process name, command
// line). Empty values are grouped under models.UnknownField. Candidates are
// ordered by first sighting, earliest first.
func Reduce(events []models.RawEvent) []models.PivotCandidate {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[groupKey]*models.PivotCandidate, len(events))
	hosts := make(map[groupKey]map[string]struct{}, len(events))
	for _, ev := range events {
		k := groupKey{process: orUnknown(ev.ProcessName), command: orUnknown(ev.CommandLine)}
		c := groups[k]
		if c == nil {
			c = &models.PivotCandidate{
				ProcessName: k.process,
				CommandLine: k.command,
				FirstSeen:   ev.Timestamp,
			}
			groups[k] = c
			hosts[k] = make(map[string]struct{})
		}
		c.OccurrenceCount++
		if ev.Timestamp.Before(c.FirstSeen) {
			c.FirstSeen = ev.Timestamp
		}
		if ev.Computer != "" {
			hosts[k][ev.Computer] = struct{}{}
		}
	}

	out := make([]models.PivotCandidate, 0, len(groups))
	for k, c := range groups {
		if len(hosts[k]) > 0 {
			c.Computers = make([]string, 0, len(hosts[k]))
			for h := range hosts[k] {
				c.Computers = append(c.Computers, h)
			}
			sort.Strings(c.Computers)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessByFirstSeen(out[i], out[j])
	})
	return out
}

func lessByFirstSeen(a, b models.PivotCandidate) bool {
	if !a.FirstSeen.Equal(b.FirstSeen) {
		return a.FirstSeen.Before(b.FirstSeen)
	}
	if a.ProcessName != b.ProcessName {
		return a.ProcessName < b.ProcessName
	}
	return a.CommandLine < b.CommandLine
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return models.UnknownField
	}
	return v
}

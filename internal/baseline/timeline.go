package baseline

import (
	"sort"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

const (
	WarnNoEvents     = "timeline is empty after filtering"
	WarnNoSuspicious = "no suspicious pivot events found"
)

// Config lists the terms that mark a timeline entry suspicious.
type Config struct {
	SuspiciousTerms []string
}

// Entry is one recognized event on the investigation timeline.
type Entry struct {
	Event      models.RawEvent
	Suspicious bool
}

// Timeline is the time-ordered list of recognized events.
type Timeline struct {
	Entries []Entry
}

// Build keeps recognized events, orders them by timestamp (stable on ties)
// and flags the suspicious ones.
func Build(events []models.RawEvent, cfg Config) *Timeline {
	terms := normalize(cfg.SuspiciousTerms)
	recognized := models.FilterRecognized(events)
	sort.SliceStable(recognized, func(i, j int) bool {
		return recognized[i].Timestamp.Before(recognized[j].Timestamp)
	})

	tl := &Timeline{Entries: make([]Entry, 0, len(recognized))}
	for _, ev := range recognized {
		text := strings.ToLower(ev.CommandLine + " " + ev.ScriptBlockText + " " + ev.ProcessName)
		tl.Entries = append(tl.Entries, Entry{Event: ev, Suspicious: containsAny(text, terms)})
	}
	return tl
}

// Result measures the time from the first event to the first suspicious one.
func (t *Timeline) Result() models.BaselineResult {
	res := models.BaselineResult{Events: len(t.Entries)}
	if len(t.Entries) == 0 {
		res.Warning = WarnNoEvents
		return res
	}

	start := t.Entries[0].Event.Timestamp
	res.AlertStart = &start

	var first *time.Time
	for i := range t.Entries {
		if !t.Entries[i].Suspicious {
			continue
		}
		res.SuspiciousEvents++
		if first == nil {
			ts := t.Entries[i].Event.Timestamp
			first = &ts
		}
	}
	if first == nil {
		res.Warning = WarnNoSuspicious
		return res
	}

	minutes := first.Sub(start).Minutes()
	res.FirstPivot = first
	res.MTTRMinutes = &minutes
	return res
}

// Measure builds the timeline and returns its result.
func Measure(events []models.RawEvent, cfg Config) models.BaselineResult {
	return Build(events, cfg).Result()
}

func normalize(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

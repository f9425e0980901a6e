package history

import (
	"fmt"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

// Resolver answers whether a command signature was seen during a look-back
// window before a reference time.
type Resolver struct {
	window time.Duration
}

// NewResolver creates a resolver with the given look-back window.
func NewResolver(window time.Duration) (*Resolver, error) {
	if window <= 0 {
		return nil, fmt.Errorf("history lookback must be positive, got %s", window)
	}
	return &Resolver{window: window}, nil
}

// Signature is the loose match token for a command: its first
// whitespace-delimited word, case-folded.
func Signature(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Resolve counts events in [at-window, at) whose command line contains the
// signature of command. Zero matches is a normal result with nil timestamps.
func (r *Resolver) Resolve(events []models.RawEvent, command string, at time.Time) models.HistoricalContext {
	out := models.HistoricalContext{
		Token:  Signature(command),
		Window: r.window.String(),
	}
	if out.Token == "" {
		return out
	}

	start := at.Add(-r.window)
	var first, last time.Time
	for _, ev := range events {
		if ev.Timestamp.Before(start) || !ev.Timestamp.Before(at) {
			continue
		}
		if !strings.Contains(strings.ToLower(ev.CommandLine), out.Token) {
			continue
		}
		if out.Count == 0 || ev.Timestamp.Before(first) {
			first = ev.Timestamp
		}
		if out.Count == 0 || ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
		out.Count++
	}

	if out.Count > 0 {
		out.FirstSeen = &first
		out.LastSeen = &last
	}
	return out
}

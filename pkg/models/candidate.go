package models

import (
	"strings"
	"time"
)

// UnknownField replaces a missing process name or command line in grouping keys.
const UnknownField = "UNKNOWN"

// Technique is an ATT&CK technique attached through a high-signal keyword.
type Technique struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// PivotCandidate is one unique (process, command line) pair with its score.
type PivotCandidate struct {
	ProcessName     string      `json:"process"`
	CommandLine     string      `json:"command"`
	FirstSeen       time.Time   `json:"first_seen"`
	OccurrenceCount int         `json:"occurrence_count"`
	Computers       []string    `json:"computers,omitempty"`
	IsNoise         bool        `json:"is_noise"`
	Score           int         `json:"score"`
	Reasons         []string    `json:"reasons"`
	Techniques      []Technique `json:"techniques"`
}

// Text is the case-folded text that keyword rules match against.
func (c *PivotCandidate) Text() string {
	return strings.ToLower(c.ProcessName + " " + c.CommandLine)
}

// Key identifies the candidate group.
func (c *PivotCandidate) Key() string {
	return c.ProcessName + "\x00" + c.CommandLine
}

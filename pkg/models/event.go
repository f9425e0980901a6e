package models

import "time"

// EventKind is the normalized category of a Windows event record.
type EventKind string

const (
	KindProcessCreation EventKind = "process-creation"
	KindScriptBlock     EventKind = "script-block"
	KindOther           EventKind = "other"
)

// Windows event IDs for the recognized kinds.
const (
	EventIDProcessCreation = 4688
	EventIDScriptBlock     = 4104
)

// KindForEventID maps a Windows event ID to its kind.
func KindForEventID(id int) EventKind {
	switch id {
	case EventIDProcessCreation:
		return KindProcessCreation
	case EventIDScriptBlock:
		return KindScriptBlock
	default:
		return KindOther
	}
}

// Recognized reports whether the kind takes part in pivot analysis.
func (k EventKind) Recognized() bool {
	return k == KindProcessCreation || k == KindScriptBlock
}

// RawEvent is one exported event record. It is never mutated after parsing.
type RawEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	EventID         int       `json:"event_id,omitempty"`
	Kind            EventKind `json:"kind"`
	Computer        string    `json:"computer,omitempty"`
	ProcessName     string    `json:"process_name,omitempty"`
	CommandLine     string    `json:"command_line,omitempty"`
	ScriptBlockText string    `json:"script_block_text,omitempty"`
}

// IngestStats counts what happened to records before they reached the core.
type IngestStats struct {
	Total    int `json:"total"`
	Skipped  int `json:"skipped_malformed"`
	Filtered int `json:"filtered_kind"`
}

// Merge adds other into s.
func (s *IngestStats) Merge(other IngestStats) {
	s.Total += other.Total
	s.Skipped += other.Skipped
	s.Filtered += other.Filtered
}

// FilterRecognized returns the events whose kind takes part in analysis, in
// input order.
func FilterRecognized(events []RawEvent) []RawEvent {
	out := make([]RawEvent, 0, len(events))
	for _, ev := range events {
		if ev.Kind.Recognized() {
			out = append(out, ev)
		}
	}
	return out
}

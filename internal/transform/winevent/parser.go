package winevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

// ErrMalformedInput marks records that cannot reach the core.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError describes why a record was dropped.
type MalformedInputError struct {
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrMalformedInput).
func (e *MalformedInputError) Unwrap() error {
	return ErrMalformedInput
}

// Parse converts one exported JSON record into a RawEvent. Both flat exports
// and winlogbeat-shaped documents are accepted.
func Parse(data []byte) (models.RawEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.RawEvent{}, &MalformedInputError{Field: "record", Reason: err.Error()}
	}
	return FromMap(raw)
}

// FromMap converts a decoded record into a RawEvent.
func FromMap(raw map[string]interface{}) (models.RawEvent, error) {
	var event models.RawEvent

	ts := getString(raw, "timestamp", "@timestamp", "TimeCreated", "winlog.time_created")
	if ts == "" {
		ts = getString(raw, "winlog.event_data.UtcTime", "UtcTime")
	}
	if strings.TrimSpace(ts) == "" {
		return event, &MalformedInputError{Field: "timestamp", Reason: "missing"}
	}
	t, ok := parseTimestamp(ts)
	if !ok {
		return event, &MalformedInputError{Field: "timestamp", Reason: fmt.Sprintf("unparseable %q", ts)}
	}
	event.Timestamp = t

	kind, id, ok := parseKind(raw)
	if !ok {
		return event, &MalformedInputError{Field: "event_id", Reason: "missing"}
	}
	event.Kind = kind
	event.EventID = id

	event.Computer = getString(raw, "computer", "Computer", "winlog.computer_name", "host.name", "hostname")
	event.ProcessName = getString(raw,
		"process_name", "ProcessName", "NewProcessName",
		"winlog.event_data.ProcessName", "winlog.event_data.NewProcessName",
		"process.executable",
	)
	event.CommandLine = getString(raw,
		"command_line", "CommandLine",
		"winlog.event_data.CommandLine", "process.command_line",
	)
	event.ScriptBlockText = getString(raw,
		"script_block_text", "ScriptBlockText",
		"winlog.event_data.ScriptBlockText", "powershell.file.script_block_text",
	)
	return event, nil
}

func parseKind(raw map[string]interface{}) (models.EventKind, int, bool) {
	for _, path := range []string{"event_id", "EventID", "winlog.event_id", "event.code"} {
		v, ok := getPath(raw, path)
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			switch models.EventKind(strings.ToLower(s)) {
			case models.KindProcessCreation:
				return models.KindProcessCreation, models.EventIDProcessCreation, true
			case models.KindScriptBlock:
				return models.KindScriptBlock, models.EventIDScriptBlock, true
			}
			if s == "" {
				continue
			}
		}
		id := getInt(raw, path)
		return models.KindForEventID(id), id, true
	}
	return "", 0, false
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.000000000",
		"2006-01-02 15:04:05.0000000",
		"2006-01-02 15:04:05.000000",
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

func getString(root map[string]interface{}, paths ...string) string {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case string:
				if val == "" {
					continue
				}
				return val
			case fmt.Stringer:
				return val.String()
			case int:
				return fmt.Sprintf("%d", val)
			case int64:
				return fmt.Sprintf("%d", val)
			case float64:
				if val == float64(int64(val)) {
					return fmt.Sprintf("%d", int64(val))
				}
				return fmt.Sprintf("%f", val)
			}
		}
	}
	return ""
}

func getInt(root map[string]interface{}, paths ...string) int {
	for _, path := range paths {
		if v, ok := getPath(root, path); ok {
			switch val := v.(type) {
			case int:
				return val
			case int64:
				return int(val)
			case float64:
				return int(val)
			case string:
				if val == "" {
					continue
				}
				var parsed int
				_, err := fmt.Sscanf(val, "%d", &parsed)
				if err == nil {
					return parsed
				}
			}
		}
	}
	return 0
}

// getPath resolves a dotted path. A literal key containing the dots wins over
// nesting so flat CSV headers still resolve.
func getPath(root map[string]interface{}, path string) (interface{}, bool) {
	if v, ok := root[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var current interface{} = root
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

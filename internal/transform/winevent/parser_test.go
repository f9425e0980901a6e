package winevent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivottriage/pkg/models"
)

func TestParseFlatExport(t *testing.T) {
	ev, err := Parse([]byte(`{"timestamp":"2024-03-01 10:00:00.123456+00:00","event_id":"4688","computer":"WS01","ProcessName":"C:\\Windows\\System32\\cmd.exe","CommandLine":"cmd.exe /c whoami"}`))
	require.NoError(t, err)

	assert.Equal(t, models.KindProcessCreation, ev.Kind)
	assert.Equal(t, 4688, ev.EventID)
	assert.Equal(t, "WS01", ev.Computer)
	assert.Equal(t, `C:\Windows\System32\cmd.exe`, ev.ProcessName)
	assert.Equal(t, "cmd.exe /c whoami", ev.CommandLine)
	assert.True(t, ev.Timestamp.Equal(time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)))
	assert.Equal(t, time.UTC, ev.Timestamp.Location())
}

func TestParseWinlogbeatDocument(t *testing.T) {
	ev, err := Parse([]byte(`{
		"@timestamp": "2024-03-01T10:05:00Z",
		"winlog": {
			"event_id": 4104,
			"computer_name": "WS02",
			"event_data": {"ScriptBlockText": "Invoke-Mimikatz -DumpCreds"}
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, models.KindScriptBlock, ev.Kind)
	assert.Equal(t, "WS02", ev.Computer)
	assert.Equal(t, "Invoke-Mimikatz -DumpCreds", ev.ScriptBlockText)
	assert.Empty(t, ev.CommandLine)
}

func TestParseAcceptsKindNames(t *testing.T) {
	ev, err := FromMap(map[string]interface{}{
		"timestamp": "2024-03-01T10:00:00Z",
		"event_id":  "script-block",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindScriptBlock, ev.Kind)
	assert.Equal(t, models.EventIDScriptBlock, ev.EventID)
}

func TestParseUnrecognizedEventIsOtherKind(t *testing.T) {
	ev, err := FromMap(map[string]interface{}{
		"timestamp": "2024-03-01T10:00:00Z",
		"event_id":  float64(4624),
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindOther, ev.Kind)
	assert.False(t, ev.Kind.Recognized())
}

func TestParseRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"not json", `{"timestamp":`, "record"},
		{"missing timestamp", `{"event_id":4688}`, "timestamp"},
		{"bad timestamp", `{"timestamp":"yesterday","event_id":4688}`, "timestamp"},
		{"missing event id", `{"timestamp":"2024-03-01T10:00:00Z"}`, "event_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput))

			var mErr *MalformedInputError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, tt.field, mErr.Field)
		})
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, value := range []string{
		"2024-03-01T10:00:00Z",
		"2024-03-01T12:00:00+02:00",
		"2024-03-01 10:00:00",
		"2024-03-01 10:00:00.0000000",
		"2024-03-01T10:00:00",
	} {
		got, ok := parseTimestamp(value)
		require.True(t, ok, value)
		assert.True(t, got.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)), value)
	}
}

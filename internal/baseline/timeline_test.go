package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivottriage/pkg/models"
)

var (
	t0    = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	terms = Config{SuspiciousTerms: []string{"mimikatz", "atomic", "invoke-atomic", "powershell", "cmd.exe", "rundll32"}}
)

func proc(offset time.Duration, process, command string) models.RawEvent {
	return models.RawEvent{Timestamp: t0.Add(offset), Kind: models.KindProcessCreation, ProcessName: process, CommandLine: command}
}

func TestMeasureFirstSuspiciousEvent(t *testing.T) {
	events := []models.RawEvent{
		proc(10*time.Minute, "C:\\Windows\\System32\\rundll32.exe", "rundll32 payload.dll"),
		proc(0, "C:\\Windows\\explorer.exe", "explorer.exe"),
		{Timestamp: t0.Add(-time.Hour), Kind: models.KindOther, ProcessName: "powershell.exe"},
		{Timestamp: t0.Add(4 * time.Minute), Kind: models.KindScriptBlock, ScriptBlockText: "Invoke-AtomicTest T1003"},
	}

	res := Measure(events, terms)
	assert.Equal(t, 3, res.Events)
	assert.Equal(t, 2, res.SuspiciousEvents)
	require.NotNil(t, res.AlertStart)
	require.NotNil(t, res.FirstPivot)
	require.NotNil(t, res.MTTRMinutes)
	assert.True(t, res.AlertStart.Equal(t0))
	assert.True(t, res.FirstPivot.Equal(t0.Add(4*time.Minute)))
	assert.Equal(t, 4.0, *res.MTTRMinutes)
	assert.Empty(t, res.Warning)
}

func TestMeasureWithoutEvents(t *testing.T) {
	res := Measure([]models.RawEvent{{Timestamp: t0, Kind: models.KindOther}}, terms)
	assert.Zero(t, res.Events)
	assert.Nil(t, res.AlertStart)
	assert.Nil(t, res.MTTRMinutes)
	assert.Equal(t, WarnNoEvents, res.Warning)
}

func TestMeasureWithoutSuspiciousEvents(t *testing.T) {
	res := Measure([]models.RawEvent{proc(0, "notepad.exe", "notepad.exe a.txt")}, terms)
	assert.Equal(t, 1, res.Events)
	require.NotNil(t, res.AlertStart)
	assert.Nil(t, res.FirstPivot)
	assert.Nil(t, res.MTTRMinutes)
	assert.Equal(t, WarnNoSuspicious, res.Warning)
}

func TestBuildIsStableOnEqualTimestamps(t *testing.T) {
	events := []models.RawEvent{
		proc(time.Minute, "b.exe", "b"),
		proc(0, "first.exe", "first"),
		proc(0, "second.exe", "second"),
	}
	tl := Build(events, terms)
	require.Len(t, tl.Entries, 3)
	assert.Equal(t, "first.exe", tl.Entries[0].Event.ProcessName)
	assert.Equal(t, "second.exe", tl.Entries[1].Event.ProcessName)
	assert.Equal(t, "b.exe", tl.Entries[2].Event.ProcessName)
	assert.Equal(t, "b.exe", events[0].ProcessName, "input slice is not reordered")
}

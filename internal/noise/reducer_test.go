package noise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivottriage/pkg/models"
)

func TestReduceGroupsByProcessAndCommand(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.RawEvent{
		{Timestamp: t0.Add(3 * time.Minute), ProcessName: "cmd.exe", CommandLine: "cmd.exe /c whoami", Computer: "WS02"},
		{Timestamp: t0.Add(1 * time.Minute), ProcessName: "powershell.exe", CommandLine: "powershell -enc AAA"},
		{Timestamp: t0, ProcessName: "cmd.exe", CommandLine: "cmd.exe /c whoami", Computer: "WS01"},
		{Timestamp: t0.Add(2 * time.Minute), ProcessName: "cmd.exe", CommandLine: "cmd.exe /c whoami", Computer: "WS01"},
	}

	got := Reduce(events)
	require.Len(t, got, 2)

	assert.Equal(t, "cmd.exe /c whoami", got[0].CommandLine)
	assert.True(t, got[0].FirstSeen.Equal(t0))
	assert.Equal(t, 3, got[0].OccurrenceCount)
	assert.Equal(t, []string{"WS01", "WS02"}, got[0].Computers)

	assert.Equal(t, "powershell -enc AAA", got[1].CommandLine)
	assert.Equal(t, 1, got[1].OccurrenceCount)
	assert.Nil(t, got[1].Computers)
}

func TestReduceUsesUnknownPlaceholder(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	got := Reduce([]models.RawEvent{
		{Timestamp: t0, ScriptBlockText: "Get-Process"},
		{Timestamp: t0.Add(time.Second), ProcessName: "  "},
	})
	require.Len(t, got, 1)
	assert.Equal(t, models.UnknownField, got[0].ProcessName)
	assert.Equal(t, models.UnknownField, got[0].CommandLine)
	assert.Equal(t, 2, got[0].OccurrenceCount)
}

func TestReduceIsOrderIndependent(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.RawEvent{
		{Timestamp: t0, ProcessName: "b.exe", CommandLine: "b"},
		{Timestamp: t0, ProcessName: "a.exe", CommandLine: "a"},
		{Timestamp: t0.Add(time.Minute), ProcessName: "a.exe", CommandLine: "a"},
		{Timestamp: t0.Add(-time.Minute), ProcessName: "c.exe", CommandLine: "c"},
	}
	reversed := make([]models.RawEvent, len(events))
	for i := range events {
		reversed[len(events)-1-i] = events[i]
	}

	assert.Equal(t, Reduce(events), Reduce(reversed))
	got := Reduce(events)
	assert.Equal(t, "c.exe", got[0].ProcessName)
	assert.Equal(t, "a.exe", got[1].ProcessName)
	assert.Equal(t, "b.exe", got[2].ProcessName)
}

func TestReduceEmpty(t *testing.T) {
	assert.Nil(t, Reduce(nil))
}

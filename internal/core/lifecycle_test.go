package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justpow98/j3d-backend/internal/db"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to PrintStatus
		ok       bool
	}{
		{StatusQueued, StatusScheduled, true},
		{StatusQueued, StatusStarted, true},
		{StatusQueued, StatusCancelled, true},
		{StatusScheduled, StatusStarted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusStarted, StatusCompleted, true},
		{StatusStarted, StatusFailed, true},
		{StatusStarted, StatusCancelled, true},

		{StatusQueued, StatusCompleted, false},
		{StatusQueued, StatusFailed, false},
		{StatusScheduled, StatusCompleted, false},
		{StatusStarted, StatusStarted, false},
		{StatusCompleted, StatusStarted, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusFailed, StatusStarted, false},
		{StatusCancelled, StatusQueued, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusFailed))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.False(t, IsTerminal(StatusQueued))
	assert.False(t, IsTerminal(StatusScheduled))
	assert.False(t, IsTerminal(StatusStarted))
}

func TestApplyStatusChangeStampsStartedOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sp := &db.ScheduledPrint{Status: string(StatusQueued)}

	require.NoError(t, ApplyStatusChange(sp, StatusStarted, "", now))
	require.NotNil(t, sp.StartedAt)
	assert.Equal(t, now, *sp.StartedAt)

	// repeating started is rejected, so the original timestamp survives
	err := ApplyStatusChange(sp, StatusStarted, "", now.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, now, *sp.StartedAt)
}

func TestApplyStatusChangeCompleted(t *testing.T) {
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	sp := &db.ScheduledPrint{Status: string(StatusStarted)}

	require.NoError(t, ApplyStatusChange(sp, StatusCompleted, "", now))
	assert.Equal(t, string(StatusCompleted), sp.Status)
	require.NotNil(t, sp.CompletedAt)
	assert.Equal(t, now, *sp.CompletedAt)
	assert.Empty(t, sp.FailedReason)
}

func TestApplyStatusChangeFailedCarriesReason(t *testing.T) {
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	sp := &db.ScheduledPrint{Status: string(StatusStarted)}

	require.NoError(t, ApplyStatusChange(sp, StatusFailed, "nozzle clog", now))
	assert.Equal(t, string(StatusFailed), sp.Status)
	require.NotNil(t, sp.CompletedAt)
	assert.Equal(t, "nozzle clog", sp.FailedReason)
}

func TestApplyStatusChangeRejectsInvalid(t *testing.T) {
	now := time.Now()

	sp := &db.ScheduledPrint{Status: string(StatusCompleted)}
	err := ApplyStatusChange(sp, StatusStarted, "", now)
	require.Error(t, err)
	assert.Equal(t, string(StatusCompleted), sp.Status)

	sp = &db.ScheduledPrint{Status: string(StatusQueued)}
	err = ApplyStatusChange(sp, PrintStatus("paused"), "", now)
	require.Error(t, err)
	assert.Equal(t, string(StatusQueued), sp.Status)
}

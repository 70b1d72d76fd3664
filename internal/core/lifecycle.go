package core

import (
	"fmt"
	"time"

	"github.com/justpow98/j3d-backend/internal/db"
)

type PrintStatus string

const (
	StatusQueued    PrintStatus = "queued"
	StatusScheduled PrintStatus = "scheduled"
	StatusStarted   PrintStatus = "started"
	StatusCompleted PrintStatus = "completed"
	StatusFailed    PrintStatus = "failed"
	StatusCancelled PrintStatus = "cancelled"
)

// validPredecessors maps a target status to the statuses a job may move from.
// There are no self-transitions: repeating "started" on a started job is
// rejected, so started_at is stamped exactly once.
var validPredecessors = map[PrintStatus][]PrintStatus{
	StatusScheduled: {StatusQueued},
	StatusStarted:   {StatusQueued, StatusScheduled},
	StatusCompleted: {StatusStarted},
	StatusFailed:    {StatusStarted},
	StatusCancelled: {StatusQueued, StatusScheduled, StatusStarted},
}

func IsValidStatus(s PrintStatus) bool {
	switch s {
	case StatusQueued, StatusScheduled, StatusStarted, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func IsTerminal(s PrintStatus) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func CanTransition(from, to PrintStatus) bool {
	for _, p := range validPredecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// ApplyStatusChange validates the transition and stamps the lifecycle
// timestamps on the job. It mutates the row in memory only; persisting it is
// the caller's job.
func ApplyStatusChange(sp *db.ScheduledPrint, to PrintStatus, failedReason string, now time.Time) error {
	from := PrintStatus(sp.Status)
	if !IsValidStatus(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("cannot transition print from %s to %s", from, to)
	}

	sp.Status = string(to)

	switch to {
	case StatusStarted:
		if sp.StartedAt == nil {
			t := now
			sp.StartedAt = &t
		}
	case StatusCompleted:
		t := now
		sp.CompletedAt = &t
	case StatusFailed:
		t := now
		sp.CompletedAt = &t
		sp.FailedReason = failedReason
	}

	return nil
}

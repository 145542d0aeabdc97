package eventqueue

import (
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// PicksLockKind is the river job kind for pick lock jobs.
const PicksLockKind = "event_picks_lock"

// QueueName is the dedicated river queue for event jobs.
const QueueName = "event"

// EventPicksLockJob fires at an event's scheduled start to stamp and
// announce the pick lock.
type EventPicksLockJob struct {
	EventID sharedtypes.EventID `json:"event_id"`
}

// Kind returns the job type identifier for River
func (EventPicksLockJob) Kind() string { return PicksLockKind }

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	EventID     string `json:"event_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
}

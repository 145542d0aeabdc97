package liveservice

import (
	"context"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Service tracks each bout's round phase and its scoring window.
type Service interface {
	// ApplySignal feeds one round timing signal through the phase machine.
	ApplySignal(ctx context.Context, boutID sharedtypes.BoutID, sig livedomain.Signal) (*Transition, error)

	// IsScoringOpen reports whether round of the bout accepts score submissions.
	IsScoringOpen(ctx context.Context, boutID sharedtypes.BoutID, round int) (bool, error)

	// GetLiveStatus returns the status of every known bout among boutIDs.
	GetLiveStatus(ctx context.Context, boutIDs []sharedtypes.BoutID) (map[sharedtypes.BoutID]LiveStatus, error)

	// GetEventLive returns every bout status of an event with the polling hint.
	GetEventLive(ctx context.Context, eventID sharedtypes.EventID) (*EventLive, error)

	// Reconcile re-arms persisted windows that are still running and closes
	// the ones whose deadline has passed.
	Reconcile(ctx context.Context) (*ReconcileSummary, error)

	// Shutdown cancels every in-memory timer without closing windows.
	Shutdown()
}

// BoutLookup is the slice of the event service the tracker reads.
type BoutLookup interface {
	GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error)
	ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error)
	ListBouts(ctx context.Context, boutIDs []sharedtypes.BoutID) ([]eventservice.BoutContext, error)
	GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error)
}

// Config tunes the tracker.
type Config struct {
	GracePeriod time.Duration
	Polling     livedomain.PollingPolicy
}

// LiveStatus is what viewers see of a bout.
type LiveStatus struct {
	EventID         sharedtypes.EventID   `json:"event_id"`
	BoutID          sharedtypes.BoutID    `json:"bout_id"`
	Phase           sharedtypes.PhaseKind `json:"phase"`
	CurrentRound    int                   `json:"current_round"`
	ScheduledRounds int                   `json:"scheduled_rounds"`
	IsLive          bool                  `json:"is_live"`
	IsScoring       bool                  `json:"is_scoring"`
	ScoringRound    int                   `json:"scoring_round,omitempty"`
	WindowClosesAt  *time.Time            `json:"window_closes_at,omitempty"`
}

// PhaseValue returns the status phase.
func (s LiveStatus) PhaseValue() sharedtypes.Phase {
	return sharedtypes.Phase{Kind: s.Phase, Round: s.CurrentRound}
}

// Transition is the outcome of one signal.
type Transition struct {
	Previous sharedtypes.Phase
	Status   LiveStatus
	Changed  bool
	// Closed is the window the signal closed, if any.
	Closed *ClosedWindow
	// GradingRequested is set when the bout completed with a stored result.
	GradingRequested bool
}

// ClosedWindow is a window together with why it ended.
type ClosedWindow struct {
	Window livedomain.Window
	Reason string
}

// EventLive is an event's statuses in card order plus the polling hint.
type EventLive struct {
	EventID      sharedtypes.EventID `json:"event_id"`
	Statuses     []LiveStatus        `json:"statuses"`
	PollInterval time.Duration       `json:"-"`
}

// ReconcileSummary counts what Reconcile did.
type ReconcileSummary struct {
	Rearmed int
	Closed  int
}

package scorecardservice

import (
	"context"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	scorecarddomain "github.com/Black-And-White-Club/ringside/app/modules/scorecard/domain"
	scorecarddb "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Service is the scorecard module's application surface.
type Service interface {
	// SubmitRoundScore stores a viewer's score while the round's window is
	// open and returns the recomputed round summary.
	SubmitRoundScore(ctx context.Context, req SubmitRequest) (*RoundUpdate, error)

	// GetEventScorecards returns one scorecard per bout in card order.
	GetEventScorecards(ctx context.Context, eventID sharedtypes.EventID) ([]scorecarddomain.BoutScorecard, error)

	// GetEventSheet gathers what the spreadsheet export needs.
	GetEventSheet(ctx context.Context, eventID sharedtypes.EventID) (*EventSheet, error)
}

// ScoringGate answers whether a round accepts submissions right now.
type ScoringGate interface {
	IsScoringOpen(ctx context.Context, boutID sharedtypes.BoutID, round int) (bool, error)
}

// BoutLookup is the slice of the event service the scorecard reads.
type BoutLookup interface {
	GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error)
	ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error)
}

// SubmitRequest is one round score from a viewer.
type SubmitRequest struct {
	UserID    sharedtypes.UserID
	BoutID    sharedtypes.BoutID
	Round     int
	RedScore  int
	BlueScore int
}

// RoundUpdate is a recomputed round with the event it belongs to.
type RoundUpdate struct {
	EventID sharedtypes.EventID
	BoutID  sharedtypes.BoutID
	Summary scorecarddomain.RoundSummary
}

// EventSheet is an event card with its scorecards and raw submissions.
type EventSheet struct {
	Card        eventservice.EventCard
	Scorecards  []scorecarddomain.BoutScorecard
	Submissions []scorecarddb.RoundScore
}

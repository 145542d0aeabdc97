package livehandlers

import (
	"context"

	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
)

// Handlers turns round timing feed signals into live updates.
type Handlers interface {
	HandleRoundStarted(ctx context.Context, payload *feedevents.RoundSignalPayloadV1) ([]handlerwrapper.Result, error)
	HandleRoundEnded(ctx context.Context, payload *feedevents.RoundSignalPayloadV1) ([]handlerwrapper.Result, error)
	HandleFightEnded(ctx context.Context, payload *feedevents.FightEndedPayloadV1) ([]handlerwrapper.Result, error)
}

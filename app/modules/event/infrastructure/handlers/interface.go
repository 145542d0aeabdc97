package eventhandlers

import (
	"context"

	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
)

// Handlers consumes the card, status and result feeds.
type Handlers interface {
	HandleCardPublished(ctx context.Context, payload *feedevents.CardPublishedPayloadV1) ([]handlerwrapper.Result, error)
	HandleEventRescheduled(ctx context.Context, payload *feedevents.EventRescheduledPayloadV1) ([]handlerwrapper.Result, error)
	HandleBoutStatusChanged(ctx context.Context, payload *feedevents.BoutStatusChangedPayloadV1) ([]handlerwrapper.Result, error)
	HandleBoutResultRecorded(ctx context.Context, payload *feedevents.BoutResultRecordedPayloadV1) ([]handlerwrapper.Result, error)
}

package pickhandlers

import (
	"context"

	lifecycleevents "github.com/Black-And-White-Club/ringside/pkg/events/lifecycle"
	"github.com/Black-And-White-Club/ringside/pkg/utils/handlerwrapper"
)

// Handlers reacts to bout lifecycle events by voiding or grading picks.
type Handlers interface {
	HandleBoutStatusUpdated(ctx context.Context, payload *lifecycleevents.BoutStatusUpdatedPayloadV1) ([]handlerwrapper.Result, error)
	HandleBoutResultStored(ctx context.Context, payload *lifecycleevents.BoutResultStoredPayloadV1) ([]handlerwrapper.Result, error)
	HandleGradingRequested(ctx context.Context, payload *lifecycleevents.BoutGradingRequestedPayloadV1) ([]handlerwrapper.Result, error)
}

package livedomain

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// PollingPolicy maps the phases of an event's bouts to a refresh cadence
// for clients that are not on the realtime channel.
type PollingPolicy struct {
	Hot     time.Duration
	Idle    time.Duration
	Default time.Duration
}

// DefaultPollingPolicy is used when config leaves the intervals unset.
var DefaultPollingPolicy = PollingPolicy{
	Hot:     5 * time.Second,
	Idle:    60 * time.Second,
	Default: 120 * time.Second,
}

// BoutActivity is a bout's phase together with whether its scoring window
// is open.
type BoutActivity struct {
	Phase      sharedtypes.Phase
	WindowOpen bool
}

// Hot reports whether the bout warrants fast refreshes: a round is being
// fought or viewers can still score one. A break whose window has run out
// is not hot, and a finished fight still is while its last round is open.
func (a BoutActivity) Hot() bool {
	return a.Phase.Kind == sharedtypes.PhaseRoundLive || a.WindowOpen
}

// Interval returns the cadence implied by the hottest phase present. A
// break is taken to have its window open since phases alone cannot say.
func (p PollingPolicy) Interval(phases []sharedtypes.Phase) time.Duration {
	if len(phases) == 0 {
		return p.Default
	}
	acts := make([]BoutActivity, len(phases))
	for i, ph := range phases {
		acts[i] = BoutActivity{Phase: ph, WindowOpen: ph.Kind == sharedtypes.PhaseRoundBreak}
	}
	return p.IntervalFor(acts)
}

// IntervalFor returns the cadence implied by the hottest bout. No bouts
// yields the safe default. A card where every bout is complete needs no
// polling and yields zero.
func (p PollingPolicy) IntervalFor(acts []BoutActivity) time.Duration {
	if len(acts) == 0 {
		return p.Default
	}

	scheduled := false
	for _, a := range acts {
		if a.Hot() {
			return p.Hot
		}
		if a.Phase.Kind == sharedtypes.PhaseScheduled {
			scheduled = true
		}
	}
	if scheduled {
		return p.Idle
	}
	return 0
}

// PollingInterval applies DefaultPollingPolicy.
func PollingInterval(phases []sharedtypes.Phase) time.Duration {
	return DefaultPollingPolicy.Interval(phases)
}

// Package livedomain holds the round phase machine, the grace window
// registry and the refresh cadence rules.
package livedomain

import (
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// SignalKind is a timing event from the feed.
type SignalKind string

const (
	SignalRoundStarted SignalKind = "round_started"
	SignalRoundEnded   SignalKind = "round_ended"
	SignalFightEnded   SignalKind = "fight_ended"
)

// Signal is one timing event. Round is ignored for SignalFightEnded.
type Signal struct {
	Kind  SignalKind
	Round int
}

func RoundStarted(n int) Signal { return Signal{Kind: SignalRoundStarted, Round: n} }
func RoundEnded(n int) Signal   { return Signal{Kind: SignalRoundEnded, Round: n} }
func FightEnded() Signal        { return Signal{Kind: SignalFightEnded} }

// Scheduled is the phase every bout starts in.
var Scheduled = sharedtypes.Phase{Kind: sharedtypes.PhaseScheduled}

// Transition applies sig to current. A signal that repeats the current
// phase is a no-op and reports changed false. scheduledRounds bounds
// round numbers when positive.
func Transition(current sharedtypes.Phase, sig Signal, scheduledRounds int) (next sharedtypes.Phase, changed bool, err error) {
	invalid := func() (sharedtypes.Phase, bool, error) {
		return current, false, fmt.Errorf("%w: %s from %s", sharedtypes.ErrInvalidTransition, describe(sig), current)
	}

	if current.Kind == sharedtypes.PhaseComplete {
		if sig.Kind == SignalFightEnded {
			return current, false, nil
		}
		return invalid()
	}

	switch sig.Kind {
	case SignalRoundStarted:
		if sig.Round < 1 || (scheduledRounds > 0 && sig.Round > scheduledRounds) {
			return invalid()
		}
		switch current.Kind {
		case sharedtypes.PhaseScheduled:
			return sharedtypes.Phase{Kind: sharedtypes.PhaseRoundLive, Round: sig.Round}, true, nil
		case sharedtypes.PhaseRoundLive:
			if sig.Round == current.Round {
				return current, false, nil
			}
		case sharedtypes.PhaseRoundBreak:
			if sig.Round == current.Round+1 {
				return sharedtypes.Phase{Kind: sharedtypes.PhaseRoundLive, Round: sig.Round}, true, nil
			}
		}
		return invalid()

	case SignalRoundEnded:
		switch {
		case current.Kind == sharedtypes.PhaseRoundLive && sig.Round == current.Round:
			return sharedtypes.Phase{Kind: sharedtypes.PhaseRoundBreak, Round: sig.Round}, true, nil
		case current.Kind == sharedtypes.PhaseRoundBreak && sig.Round == current.Round:
			return current, false, nil
		}
		return invalid()

	case SignalFightEnded:
		return sharedtypes.Phase{Kind: sharedtypes.PhaseComplete, Round: current.Round}, true, nil
	}

	return invalid()
}

func describe(sig Signal) string {
	if sig.Kind == SignalFightEnded {
		return string(sig.Kind)
	}
	return fmt.Sprintf("%s(%d)", sig.Kind, sig.Round)
}

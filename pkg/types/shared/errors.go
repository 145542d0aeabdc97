package sharedtypes

import "errors"

// Domain errors shared across modules. Callers wrap them with context via
// fmt.Errorf("%w: ...") and match with errors.Is.
var (
	// ErrLocked indicates the event has started and picks can no longer change.
	ErrLocked = errors.New("picks are locked for this event")

	// ErrInvalidBoutState indicates the bout was canceled or replaced.
	ErrInvalidBoutState = errors.New("bout is not accepting picks")

	// ErrWindowClosed indicates the scoring window for the round is not open.
	ErrWindowClosed = errors.New("scoring window is closed")

	// ErrInvalidScore indicates a round score outside the scoring scale.
	ErrInvalidScore = errors.New("score out of range")

	// ErrInvalidCorner indicates an unknown or non-pickable corner.
	ErrInvalidCorner = errors.New("invalid corner")

	// ErrInvalidPrediction indicates a predicted round outside the bout's scheduled rounds.
	ErrInvalidPrediction = errors.New("invalid prediction")

	// ErrNotFound indicates a referenced event, bout or pick does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAggregationDegraded indicates a batch read failed after retries.
	ErrAggregationDegraded = errors.New("aggregation degraded")

	// ErrInvalidTransition indicates a timing signal that does not apply to the bout's phase.
	ErrInvalidTransition = errors.New("invalid phase transition")
)

// IsDomainError reports whether err is one of the domain errors above, as
// opposed to an infrastructure failure worth retrying.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrLocked,
		ErrInvalidBoutState,
		ErrWindowClosed,
		ErrInvalidScore,
		ErrInvalidCorner,
		ErrInvalidPrediction,
		ErrNotFound,
		ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

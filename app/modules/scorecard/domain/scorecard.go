// Package scorecarddomain reduces viewer round scores to a consensus.
package scorecarddomain

import (
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Submission is one viewer's score for one round.
type Submission struct {
	Red  int
	Blue int
}

// RoundSummary is the consensus of every current submission for a round.
type RoundSummary struct {
	Round           int                     `json:"round"`
	SubmissionCount int                     `json:"submission_count"`
	MeanRed         float64                 `json:"mean_red"`
	MeanBlue        float64                 `json:"mean_blue"`
	Winner          sharedtypes.RoundWinner `json:"winner"`
}

// BoutScorecard is a bout's round summaries in round order with the sum
// of the per-round means. SubmissionCount totals every round's submissions.
type BoutScorecard struct {
	BoutID          sharedtypes.BoutID `json:"bout_id"`
	SubmissionCount int                `json:"submission_count"`
	Rounds          []RoundSummary     `json:"rounds"`
	TotalRed        float64            `json:"total_red"`
	TotalBlue       float64            `json:"total_blue"`
}

// ValidateScore checks both corners against the scoring scale.
func ValidateScore(red, blue int) error {
	if red < sharedtypes.MinRoundScore || red > sharedtypes.MaxRoundScore ||
		blue < sharedtypes.MinRoundScore || blue > sharedtypes.MaxRoundScore {
		return fmt.Errorf("%w: %d-%d is outside %d..%d", sharedtypes.ErrInvalidScore, red, blue, sharedtypes.MinRoundScore, sharedtypes.MaxRoundScore)
	}
	return nil
}

// Summarize recomputes a round from the full submission set. The result
// does not depend on submission order.
func Summarize(round int, subs []Submission) RoundSummary {
	s := RoundSummary{Round: round, SubmissionCount: len(subs), Winner: sharedtypes.RoundWinnerNoneYet}
	if len(subs) == 0 {
		return s
	}

	var red, blue int
	for _, sub := range subs {
		red += sub.Red
		blue += sub.Blue
	}
	n := float64(len(subs))
	s.MeanRed = float64(red) / n
	s.MeanBlue = float64(blue) / n
	s.Winner = winner(red, blue)
	return s
}

// winner compares integer sums, which orders the same way as the means
// for a shared denominator and avoids float ties going astray.
func winner(red, blue int) sharedtypes.RoundWinner {
	switch {
	case red > blue:
		return sharedtypes.RoundWinnerRed
	case blue > red:
		return sharedtypes.RoundWinnerBlue
	default:
		return sharedtypes.RoundWinnerEven
	}
}

// Cumulative builds a bout scorecard from its round summaries, which must
// already be in round order.
func Cumulative(boutID sharedtypes.BoutID, rounds []RoundSummary) BoutScorecard {
	card := BoutScorecard{BoutID: boutID, Rounds: rounds}
	if card.Rounds == nil {
		card.Rounds = []RoundSummary{}
	}
	for _, r := range rounds {
		card.SubmissionCount += r.SubmissionCount
		card.TotalRed += r.MeanRed
		card.TotalBlue += r.MeanBlue
	}
	return card
}

// Package communitydomain reduces pick counts into community percentages.
package communitydomain

import (
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// MinSampleSize is the fewest picks a bout needs before its percentages
// are shown to viewers.
const MinSampleSize = 5

// Percentages is the share of picks per corner for one bout.
type Percentages struct {
	BoutID      sharedtypes.BoutID `json:"bout_id"`
	TotalPicks  int                `json:"total_picks"`
	RedPicks    int                `json:"red_picks"`
	BluePicks   int                `json:"blue_picks"`
	RedPercent  float64            `json:"red_percent"`
	BluePercent float64            `json:"blue_percent"`
}

// Compute builds percentages from per-corner counts. A bout with no picks
// reports 0% for both corners.
func Compute(boutID sharedtypes.BoutID, counts map[sharedtypes.Corner]int) Percentages {
	p := Percentages{
		BoutID:    boutID,
		RedPicks:  counts[sharedtypes.CornerRed],
		BluePicks: counts[sharedtypes.CornerBlue],
	}
	p.TotalPicks = p.RedPicks + p.BluePicks
	if p.TotalPicks == 0 {
		return p
	}
	p.RedPercent = float64(p.RedPicks) / float64(p.TotalPicks) * 100
	p.BluePercent = float64(p.BluePicks) / float64(p.TotalPicks) * 100
	return p
}

// ShouldDisplay applies the default display gate.
func ShouldDisplay(total int) bool {
	return ShouldDisplayWith(total, MinSampleSize)
}

// ShouldDisplayWith applies a display gate with a configured threshold.
func ShouldDisplayWith(total, minSample int) bool {
	if minSample <= 0 {
		minSample = MinSampleSize
	}
	return total >= minSample
}

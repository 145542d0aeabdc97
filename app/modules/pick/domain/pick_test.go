package pickdomain

import (
	"testing"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestGradePick(t *testing.T) {
	tests := []struct {
		name       string
		pick       Pick
		winner     sharedtypes.Corner
		wantStatus sharedtypes.PickStatus
		wantScore  *int
	}{
		{
			name:       "correct pick scores one",
			pick:       Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusActive},
			winner:     sharedtypes.CornerRed,
			wantStatus: sharedtypes.PickStatusGraded,
			wantScore:  intPtr(1),
		},
		{
			name:       "missed pick scores zero",
			pick:       Pick{Corner: sharedtypes.CornerBlue, Status: sharedtypes.PickStatusActive},
			winner:     sharedtypes.CornerRed,
			wantStatus: sharedtypes.PickStatusGraded,
			wantScore:  intPtr(0),
		},
		{
			name:       "draw leaves pick ungraded",
			pick:       Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusActive},
			winner:     sharedtypes.CornerDraw,
			wantStatus: sharedtypes.PickStatusActive,
		},
		{
			name:       "no contest leaves pick ungraded",
			pick:       Pick{Corner: sharedtypes.CornerBlue, Status: sharedtypes.PickStatusActive},
			winner:     sharedtypes.CornerNoContest,
			wantStatus: sharedtypes.PickStatusActive,
		},
		{
			name:       "voided pick is skipped",
			pick:       Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusVoided},
			winner:     sharedtypes.CornerRed,
			wantStatus: sharedtypes.PickStatusVoided,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GradePick(tt.pick, tt.winner)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantScore, got.Score)
		})
	}
}

func TestGradePickIsIdempotent(t *testing.T) {
	for _, winner := range []sharedtypes.Corner{sharedtypes.CornerRed, sharedtypes.CornerBlue, sharedtypes.CornerDraw} {
		for _, corner := range []sharedtypes.Corner{sharedtypes.CornerRed, sharedtypes.CornerBlue} {
			once := GradePick(Pick{Corner: corner, Status: sharedtypes.PickStatusActive}, winner)
			twice := GradePick(once, winner)
			require.Equal(t, once, twice)
			assert.False(t, Changed(once, twice))
		}
	}
}

func TestChanged(t *testing.T) {
	active := Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusActive}
	assert.True(t, Changed(active, GradePick(active, sharedtypes.CornerRed)))
	assert.False(t, Changed(active, GradePick(active, sharedtypes.CornerDraw)))

	wrong := Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusGraded, Score: intPtr(1)}
	assert.True(t, Changed(wrong, GradePick(wrong, sharedtypes.CornerBlue)))
}

func TestResolveSelection(t *testing.T) {
	active := &Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusActive}
	voided := &Pick{Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusVoided}

	assert.Equal(t, ActionUpsert, ResolveSelection(nil, sharedtypes.CornerRed))
	assert.Equal(t, ActionDelete, ResolveSelection(active, sharedtypes.CornerRed))
	assert.Equal(t, ActionUpsert, ResolveSelection(active, sharedtypes.CornerBlue))
	assert.Equal(t, ActionUpsert, ResolveSelection(voided, sharedtypes.CornerRed))
}

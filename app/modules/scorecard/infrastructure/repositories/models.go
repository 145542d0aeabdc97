package scorecarddb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// RoundScore is one viewer's score for a round, unique per (user, bout, round).
type RoundScore struct {
	bun.BaseModel `bun:"table:round_scores,alias:rs"`
	UserID        sharedtypes.UserID `bun:"user_id,pk" json:"user_id"`
	BoutID        sharedtypes.BoutID `bun:"bout_id,pk" json:"bout_id"`
	Round         int                `bun:"round,pk" json:"round"`
	RedScore      int                `bun:"red_score,notnull" json:"red_score"`
	BlueScore     int                `bun:"blue_score,notnull" json:"blue_score"`
	CreatedAt     time.Time          `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time          `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

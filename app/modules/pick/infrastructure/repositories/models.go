package pickdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Pick is a viewer's prediction for a bout, unique per (user, bout).
type Pick struct {
	bun.BaseModel   `bun:"table:picks,alias:p"`
	UserID          sharedtypes.UserID     `bun:"user_id,pk" json:"user_id"`
	BoutID          sharedtypes.BoutID     `bun:"bout_id,pk" json:"bout_id"`
	Corner          sharedtypes.Corner     `bun:"corner,notnull" json:"corner"`
	PredictedMethod *string                `bun:"predicted_method,nullzero" json:"predicted_method,omitempty"`
	PredictedRound  *int                   `bun:"predicted_round,nullzero" json:"predicted_round,omitempty"`
	Status          sharedtypes.PickStatus `bun:"status,notnull,default:'active'" json:"status"`
	Score           *int                   `bun:"score" json:"score"`
	CreatedAt       time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

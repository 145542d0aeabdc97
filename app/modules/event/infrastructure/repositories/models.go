package eventdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// Event is a published fight card.
type Event struct {
	bun.BaseModel  `bun:"table:events,alias:e"`
	ID             sharedtypes.EventID `bun:"id,pk" json:"id"`
	Name           string              `bun:"name,notnull" json:"name"`
	Location       string              `bun:"location,notnull,default:''" json:"location"`
	ScheduledStart time.Time           `bun:"scheduled_start,notnull" json:"scheduled_start"`
	PicksLockedAt  *time.Time          `bun:"picks_locked_at,nullzero" json:"picks_locked_at,omitempty"`
	CreatedAt      time.Time           `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time           `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Bout is one fight on an event's card. Position 0 is the main event.
type Bout struct {
	bun.BaseModel   `bun:"table:bouts,alias:b"`
	ID              sharedtypes.BoutID     `bun:"id,pk" json:"id"`
	EventID         sharedtypes.EventID    `bun:"event_id,notnull" json:"event_id"`
	Position        int                    `bun:"position,notnull" json:"position"`
	RedFighter      string                 `bun:"red_fighter,notnull" json:"red_fighter"`
	BlueFighter     string                 `bun:"blue_fighter,notnull" json:"blue_fighter"`
	Status          sharedtypes.BoutStatus `bun:"status,notnull,default:'scheduled'" json:"status"`
	ScheduledRounds *int                   `bun:"scheduled_rounds,nullzero" json:"scheduled_rounds,omitempty"`
	CreatedAt       time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"-"`
}

// Result is the official outcome of a bout as reported by the results feed.
type Result struct {
	bun.BaseModel `bun:"table:bout_results,alias:br"`
	BoutID        sharedtypes.BoutID `bun:"bout_id,pk" json:"bout_id"`
	WinnerCorner  sharedtypes.Corner `bun:"winner_corner,notnull" json:"winner_corner"`
	Method        string             `bun:"method,notnull,default:''" json:"method"`
	Round         int                `bun:"round,notnull,default:0" json:"round"`
	Time          string             `bun:"result_time,notnull,default:''" json:"time"`
	RecordedAt    time.Time          `bun:"recorded_at,notnull,default:current_timestamp" json:"recorded_at"`
}

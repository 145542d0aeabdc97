package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// Card is a seeded event and its bouts in card order.
type Card struct {
	Event eventdb.Event
	Bouts []eventdb.Bout
}

// BoutIDs returns the card's bout ids in card order.
func (c Card) BoutIDs() []sharedtypes.BoutID {
	ids := make([]sharedtypes.BoutID, len(c.Bouts))
	for i, b := range c.Bouts {
		ids[i] = b.ID
	}
	return ids
}

// SeedCard stores an event starting at start with n scheduled bouts.
func SeedCard(t *testing.T, ctx context.Context, db bun.IDB, start time.Time, n int) Card {
	t.Helper()

	repo := eventdb.NewRepository(db)
	card := Card{Event: eventdb.Event{
		ID:             sharedtypes.EventID(gofakeit.UUID()),
		Name:           "Fight Night " + gofakeit.City(),
		Location:       gofakeit.City(),
		ScheduledStart: start.UTC().Truncate(time.Microsecond),
	}}
	require.NoError(t, repo.UpsertEvent(ctx, db, &card.Event))

	for i := 0; i < n; i++ {
		rounds := 3
		if i == 0 {
			rounds = 5
		}
		bout := eventdb.Bout{
			ID:              sharedtypes.BoutID(fmt.Sprintf("%s-bout-%d", card.Event.ID, i)),
			EventID:         card.Event.ID,
			Position:        i,
			RedFighter:      gofakeit.Name(),
			BlueFighter:     gofakeit.Name(),
			Status:          sharedtypes.BoutStatusScheduled,
			ScheduledRounds: &rounds,
		}
		require.NoError(t, repo.UpsertBout(ctx, db, &bout))
		card.Bouts = append(card.Bouts, bout)
	}
	return card
}

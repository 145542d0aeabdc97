package pickservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var eventStart = time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)

func boutContext(id sharedtypes.BoutID, status sharedtypes.BoutStatus) *eventservice.BoutContext {
	return &eventservice.BoutContext{
		Bout:            eventdb.Bout{ID: id, EventID: "ufc-300", Status: status},
		EventID:         "ufc-300",
		ScheduledStart:  eventStart,
		ScheduledRounds: 3,
	}
}

func newLookup() *FakeBoutLookup {
	return &FakeBoutLookup{
		Bouts: map[sharedtypes.BoutID]*eventservice.BoutContext{
			"b1":       boutContext("b1", sharedtypes.BoutStatusScheduled),
			"canceled": boutContext("canceled", sharedtypes.BoutStatusCanceled),
			"replaced": boutContext("replaced", sharedtypes.BoutStatusReplaced),
		},
		Results: map[sharedtypes.BoutID]*eventdb.Result{},
	}
}

func newTestService(repo *FakePickRepo, lookup *FakeBoutLookup, cache *FakeCache, now time.Time) *PickService {
	var invalidator CacheInvalidator
	if cache != nil {
		invalidator = cache
	}
	return NewPickService(
		repo,
		lookup,
		invalidator,
		clockwork.NewFakeClockAt(now),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
	)
}

func intPtr(i int) *int { return &i }

func TestUpsertPick(t *testing.T) {
	beforeStart := eventStart.Add(-time.Minute)

	tests := []struct {
		name      string
		req       UpsertPickRequest
		now       time.Time
		wantErrIs error
		wantTrace []string
	}{
		{
			name:      "stores a pick before the event starts",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "red"},
			now:       beforeStart,
			wantTrace: []string{"Upsert"},
		},
		{
			name:      "rejects at the scheduled start",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "red"},
			now:       eventStart,
			wantErrIs: sharedtypes.ErrLocked,
			wantTrace: []string{},
		},
		{
			name:      "rejects a canceled bout",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "canceled", Corner: "blue"},
			now:       beforeStart,
			wantErrIs: sharedtypes.ErrInvalidBoutState,
			wantTrace: []string{},
		},
		{
			name:      "rejects a replaced bout",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "replaced", Corner: "blue"},
			now:       beforeStart,
			wantErrIs: sharedtypes.ErrInvalidBoutState,
			wantTrace: []string{},
		},
		{
			name:      "lock is checked before bout state",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "canceled", Corner: "blue"},
			now:       eventStart.Add(time.Hour),
			wantErrIs: sharedtypes.ErrLocked,
			wantTrace: []string{},
		},
		{
			name:      "rejects a draw pick",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "draw"},
			now:       beforeStart,
			wantErrIs: sharedtypes.ErrInvalidCorner,
			wantTrace: []string{},
		},
		{
			name:      "rejects a round beyond the scheduled rounds",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "red", PredictedRound: intPtr(4)},
			now:       beforeStart,
			wantErrIs: sharedtypes.ErrInvalidPrediction,
			wantTrace: []string{},
		},
		{
			name:      "unknown bout is not found",
			req:       UpsertPickRequest{UserID: "u1", BoutID: "nope", Corner: "red"},
			now:       beforeStart,
			wantErrIs: sharedtypes.ErrNotFound,
			wantTrace: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakePickRepo()
			cache := &FakeCache{}
			svc := newTestService(repo, newLookup(), cache, tt.now)

			pick, err := svc.UpsertPick(context.Background(), tt.req)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, pick)
				assert.Empty(t, cache.Invalidated)
			} else {
				require.NoError(t, err)
				assert.Equal(t, sharedtypes.PickStatusActive, pick.Status)
				assert.Equal(t, []sharedtypes.BoutID{tt.req.BoutID}, cache.Invalidated)
			}
			assert.Equal(t, tt.wantTrace, repo.Trace())
		})
	}
}

func TestUpsertPickIsIdempotent(t *testing.T) {
	stored := map[string]pickdb.Pick{}
	repo := NewFakePickRepo()
	repo.UpsertFunc = func(ctx context.Context, db bun.IDB, p *pickdb.Pick) (*pickdb.Pick, error) {
		row := *p
		row.Status = sharedtypes.PickStatusActive
		stored[string(p.UserID)+"/"+string(p.BoutID)] = row
		return &row, nil
	}
	svc := newTestService(repo, newLookup(), nil, eventStart.Add(-time.Hour))

	req := UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "blue"}
	first, err := svc.UpsertPick(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.UpsertPick(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, stored, 1)
}

func TestPickStoredBeforeLockSurvivesLock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(eventStart.Add(-time.Minute))
	var row *pickdb.Pick
	repo := NewFakePickRepo()
	repo.UpsertFunc = func(ctx context.Context, db bun.IDB, p *pickdb.Pick) (*pickdb.Pick, error) {
		stored := *p
		stored.Status = sharedtypes.PickStatusActive
		row = &stored
		return row, nil
	}
	repo.ListForUserAndBoutsFunc = func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]pickdb.Pick, error) {
		return []pickdb.Pick{*row}, nil
	}

	lookup := newLookup()
	lookup.Card = &eventservice.EventCard{
		Event: eventdb.Event{ID: "ufc-300", ScheduledStart: eventStart},
		Bouts: []eventservice.BoutContext{*boutContext("b1", sharedtypes.BoutStatusScheduled)},
	}
	svc := NewPickService(repo, lookup, nil, clock, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewNoop(), noop.NewTracerProvider().Tracer("test"), nil)

	_, err := svc.UpsertPick(context.Background(), UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "red"})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = svc.UpsertPick(context.Background(), UpsertPickRequest{UserID: "u1", BoutID: "b1", Corner: "blue"})
	require.ErrorIs(t, err, sharedtypes.ErrLocked)

	card, err := svc.GetBoutsForEvent(context.Background(), "ufc-300", "u1")
	require.NoError(t, err)
	assert.True(t, card.Locked)
	require.Len(t, card.Bouts, 1)
	require.NotNil(t, card.Bouts[0].Pick)
	assert.Equal(t, sharedtypes.CornerRed, card.Bouts[0].Pick.Corner)
}

func TestDeletePick(t *testing.T) {
	t.Run("removes an existing pick", func(t *testing.T) {
		repo := NewFakePickRepo()
		cache := &FakeCache{}
		svc := newTestService(repo, newLookup(), cache, eventStart.Add(-time.Hour))

		require.NoError(t, svc.DeletePick(context.Background(), "u1", "b1"))
		assert.Equal(t, []string{"Delete"}, repo.Trace())
		assert.Equal(t, []sharedtypes.BoutID{"b1"}, cache.Invalidated)
	})

	t.Run("missing pick is not found", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.DeleteFunc = func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error {
			return pickdb.ErrNotFound
		}
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(-time.Hour))

		assert.ErrorIs(t, svc.DeletePick(context.Background(), "u1", "b1"), sharedtypes.ErrNotFound)
	})

	t.Run("locked event keeps the pick", func(t *testing.T) {
		repo := NewFakePickRepo()
		svc := newTestService(repo, newLookup(), nil, eventStart)

		assert.ErrorIs(t, svc.DeletePick(context.Background(), "u1", "b1"), sharedtypes.ErrLocked)
		assert.Empty(t, repo.Trace())
	})
}

func TestSelectCorner(t *testing.T) {
	active := func(c sharedtypes.Corner) func(context.Context, bun.IDB, sharedtypes.UserID, sharedtypes.BoutID) (*pickdb.Pick, error) {
		return func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) (*pickdb.Pick, error) {
			return &pickdb.Pick{UserID: userID, BoutID: boutID, Corner: c, Status: sharedtypes.PickStatusActive, PredictedRound: intPtr(2)}, nil
		}
	}

	t.Run("first tap stores the corner", func(t *testing.T) {
		repo := NewFakePickRepo()
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(-time.Hour))

		sel, err := svc.SelectCorner(context.Background(), "u1", "b1", "red")
		require.NoError(t, err)
		assert.False(t, sel.Removed)
		assert.Equal(t, sharedtypes.CornerRed, sel.Pick.Corner)
		assert.Equal(t, []string{"Get", "Upsert"}, repo.Trace())
	})

	t.Run("tapping the picked corner removes the pick", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.GetFunc = active(sharedtypes.CornerRed)
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(-time.Hour))

		sel, err := svc.SelectCorner(context.Background(), "u1", "b1", "red")
		require.NoError(t, err)
		assert.True(t, sel.Removed)
		assert.Nil(t, sel.Pick)
		assert.Equal(t, []string{"Get", "Delete"}, repo.Trace())
	})

	t.Run("tapping the other corner switches and keeps predictions", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.GetFunc = active(sharedtypes.CornerRed)
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(-time.Hour))

		sel, err := svc.SelectCorner(context.Background(), "u1", "b1", "blue")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.CornerBlue, sel.Pick.Corner)
		assert.Equal(t, intPtr(2), sel.Pick.PredictedRound)
	})

	t.Run("locked event rejects taps", func(t *testing.T) {
		repo := NewFakePickRepo()
		svc := newTestService(repo, newLookup(), nil, eventStart)

		_, err := svc.SelectCorner(context.Background(), "u1", "b1", "red")
		assert.ErrorIs(t, err, sharedtypes.ErrLocked)
		assert.Empty(t, repo.Trace())
	})
}

func TestVoidPicksForBout(t *testing.T) {
	repo := NewFakePickRepo()
	repo.VoidForBoutFunc = func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (int, error) {
		return 3, nil
	}
	cache := &FakeCache{Err: errors.New("kv unavailable")}
	svc := newTestService(repo, newLookup(), cache, eventStart.Add(time.Hour))

	n, err := svc.VoidPicksForBout(context.Background(), "canceled")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []sharedtypes.BoutID{"canceled"}, cache.Invalidated)
}

func TestGradeBout(t *testing.T) {
	one, zero := 1, 0
	picks := []pickdb.Pick{
		{UserID: "u1", BoutID: "b1", Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusActive},
		{UserID: "u2", BoutID: "b1", Corner: sharedtypes.CornerBlue, Status: sharedtypes.PickStatusActive},
		{UserID: "u3", BoutID: "b1", Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusVoided},
		{UserID: "u4", BoutID: "b1", Corner: sharedtypes.CornerRed, Status: sharedtypes.PickStatusGraded, Score: &one},
	}

	type grade struct {
		status sharedtypes.PickStatus
		score  *int
	}

	t.Run("grades active picks and skips unchanged rows", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.ListForBoutFunc = func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]pickdb.Pick, error) {
			return picks, nil
		}
		writes := map[sharedtypes.UserID]grade{}
		repo.UpdateGradeFunc = func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error {
			writes[userID] = grade{status, score}
			return nil
		}
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(time.Hour))

		summary, err := svc.GradeBout(context.Background(), "b1", sharedtypes.CornerRed)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Graded)
		assert.Equal(t, 2, summary.Correct)
		assert.Equal(t, map[sharedtypes.UserID]grade{
			"u1": {sharedtypes.PickStatusGraded, &one},
			"u2": {sharedtypes.PickStatusGraded, &zero},
		}, writes)
	})

	t.Run("draw leaves every pick untouched", func(t *testing.T) {
		repo := NewFakePickRepo()
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(time.Hour))

		summary, err := svc.GradeBout(context.Background(), "b1", sharedtypes.CornerDraw)
		require.NoError(t, err)
		assert.True(t, summary.Skipped)
		assert.Empty(t, repo.Trace())
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.ListForBoutFunc = func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]pickdb.Pick, error) {
			return picks[:1], nil
		}
		repo.UpdateGradeFunc = func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error {
			return errors.New("db down")
		}
		svc := newTestService(repo, newLookup(), nil, eventStart.Add(time.Hour))

		_, err := svc.GradeBout(context.Background(), "b1", sharedtypes.CornerRed)
		assert.ErrorContains(t, err, "db down")
	})
}

func TestGradeBoutFromResult(t *testing.T) {
	t.Run("grades with the stored winner", func(t *testing.T) {
		lookup := newLookup()
		lookup.Results["b1"] = &eventdb.Result{BoutID: "b1", WinnerCorner: sharedtypes.CornerBlue}
		svc := newTestService(NewFakePickRepo(), lookup, nil, eventStart.Add(time.Hour))

		summary, err := svc.GradeBoutFromResult(context.Background(), "b1")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.CornerBlue, summary.Winner)
	})

	t.Run("missing result is not found", func(t *testing.T) {
		svc := newTestService(NewFakePickRepo(), newLookup(), nil, eventStart.Add(time.Hour))

		_, err := svc.GradeBoutFromResult(context.Background(), "b1")
		assert.ErrorIs(t, err, sharedtypes.ErrNotFound)
	})
}

func TestGetBoutsForEvent(t *testing.T) {
	lookup := newLookup()
	lookup.Card = &eventservice.EventCard{
		Event: eventdb.Event{ID: "ufc-300", ScheduledStart: eventStart},
		Bouts: []eventservice.BoutContext{
			*boutContext("b1", sharedtypes.BoutStatusScheduled),
			*boutContext("b2", sharedtypes.BoutStatusScheduled),
		},
	}

	t.Run("anonymous viewers skip the pick read", func(t *testing.T) {
		repo := NewFakePickRepo()
		svc := newTestService(repo, lookup, nil, eventStart.Add(-time.Hour))

		card, err := svc.GetBoutsForEvent(context.Background(), "ufc-300", "")
		require.NoError(t, err)
		assert.False(t, card.Locked)
		assert.Len(t, card.Bouts, 2)
		assert.Empty(t, repo.Trace())
	})

	t.Run("attaches the viewer's picks", func(t *testing.T) {
		repo := NewFakePickRepo()
		repo.ListForUserAndBoutsFunc = func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]pickdb.Pick, error) {
			assert.Equal(t, []sharedtypes.BoutID{"b1", "b2"}, boutIDs)
			return []pickdb.Pick{{UserID: userID, BoutID: "b2", Corner: sharedtypes.CornerBlue}}, nil
		}
		svc := newTestService(repo, lookup, nil, eventStart.Add(-time.Hour))

		card, err := svc.GetBoutsForEvent(context.Background(), "ufc-300", "u1")
		require.NoError(t, err)
		assert.Nil(t, card.Bouts[0].Pick)
		require.NotNil(t, card.Bouts[1].Pick)
		assert.Equal(t, sharedtypes.CornerBlue, card.Bouts[1].Pick.Corner)
	})

	t.Run("unknown event is not found", func(t *testing.T) {
		svc := newTestService(NewFakePickRepo(), lookup, nil, eventStart)

		_, err := svc.GetBoutsForEvent(context.Background(), "other", "u1")
		assert.ErrorIs(t, err, sharedtypes.ErrNotFound)
	})
}

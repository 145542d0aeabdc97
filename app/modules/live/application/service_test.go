package liveservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	livedb "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

const testEvent sharedtypes.EventID = "ufc-300"

var fightNight = time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)

func boutContext(id sharedtypes.BoutID, status sharedtypes.BoutStatus, rounds int) *eventservice.BoutContext {
	return &eventservice.BoutContext{
		Bout:            eventdb.Bout{ID: id, EventID: testEvent, Status: status},
		EventID:         testEvent,
		ScheduledStart:  fightNight.Add(-time.Hour),
		ScheduledRounds: rounds,
		Locked:          true,
	}
}

func newLookup() *FakeBoutLookup {
	main := boutContext("main", sharedtypes.BoutStatusScheduled, 5)
	co := boutContext("co-main", sharedtypes.BoutStatusScheduled, 3)
	off := boutContext("off", sharedtypes.BoutStatusCanceled, 3)
	return &FakeBoutLookup{
		Bouts: map[sharedtypes.BoutID]*eventservice.BoutContext{
			"main":    main,
			"co-main": co,
			"off":     off,
		},
		Card: &eventservice.EventCard{
			Event: eventdb.Event{ID: testEvent},
			Bouts: []eventservice.BoutContext{*main, *co, *off},
		},
		Results: map[sharedtypes.BoutID]*eventdb.Result{},
	}
}

type harness struct {
	tracker *Tracker
	repo    *FakeLiveRepo
	lookup  *FakeBoutLookup
	pub     *FakePublisher
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:   NewFakeLiveRepo(),
		lookup: newLookup(),
		pub:    &FakePublisher{},
		clock:  clockwork.NewFakeClockAt(fightNight),
	}
	h.tracker = NewTracker(
		h.repo,
		h.lookup,
		h.pub,
		h.clock,
		Config{GracePeriod: 90 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
	)
	t.Cleanup(h.tracker.Shutdown)
	return h
}

func (h *harness) apply(t *testing.T, boutID sharedtypes.BoutID, sigs ...livedomain.Signal) *Transition {
	t.Helper()
	var tr *Transition
	for _, sig := range sigs {
		var err error
		tr, err = h.tracker.ApplySignal(context.Background(), boutID, sig)
		require.NoError(t, err)
	}
	return tr
}

func TestApplySignalRoundFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tr := h.apply(t, "main", livedomain.RoundStarted(1))
	assert.True(t, tr.Changed)
	assert.Equal(t, livedomain.Scheduled, tr.Previous)
	assert.Equal(t, sharedtypes.PhaseRoundLive, tr.Status.Phase)
	assert.True(t, tr.Status.IsLive)
	assert.False(t, tr.Status.IsScoring)

	tr = h.apply(t, "main", livedomain.RoundEnded(1))
	assert.Equal(t, sharedtypes.PhaseRoundBreak, tr.Status.Phase)
	assert.True(t, tr.Status.IsScoring)
	assert.Equal(t, 1, tr.Status.ScoringRound)
	require.NotNil(t, tr.Status.WindowClosesAt)
	assert.Equal(t, fightNight.Add(90*time.Second), *tr.Status.WindowClosesAt)

	open, err := h.tracker.IsScoringOpen(ctx, "main", 1)
	require.NoError(t, err)
	assert.True(t, open)

	stored, ok := h.repo.State("main")
	require.True(t, ok)
	require.NotNil(t, stored.WindowRound)
	assert.Equal(t, 1, *stored.WindowRound)

	h.clock.Advance(30 * time.Second)
	tr = h.apply(t, "main", livedomain.RoundStarted(2))
	require.NotNil(t, tr.Closed)
	assert.Equal(t, liveevents.ReasonRoundStarted, tr.Closed.Reason)
	assert.Equal(t, 1, tr.Closed.Window.Round)
	assert.False(t, tr.Status.IsScoring)

	open, err = h.tracker.IsScoringOpen(ctx, "main", 1)
	require.NoError(t, err)
	assert.False(t, open)

	stored, _ = h.repo.State("main")
	assert.Nil(t, stored.WindowRound)
	assert.Nil(t, stored.WindowClosesAt)

	// The timer was cancelled, so nothing is announced when it would have fired.
	h.clock.Advance(2 * time.Minute)
	assert.Never(t, func() bool {
		for _, topic := range h.pub.Topics() {
			if topic == eventbus.ScopedTopic(liveevents.ScoringClosedV1, testEvent.String()) {
				return true
			}
		}
		return false
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestApplySignalDuplicateIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.apply(t, "main", livedomain.RoundStarted(1))

	tr := h.apply(t, "main", livedomain.RoundStarted(1))
	assert.False(t, tr.Changed)
	assert.Equal(t, sharedtypes.PhaseRoundLive, tr.Status.Phase)
	assert.Equal(t, []string{"Get", "Upsert", "Get"}, h.repo.Trace())
}

func TestApplySignalErrors(t *testing.T) {
	tests := []struct {
		name      string
		boutID    sharedtypes.BoutID
		signals   []livedomain.Signal
		wantErrIs error
	}{
		{
			name:      "round end before any round started",
			boutID:    "main",
			signals:   []livedomain.Signal{livedomain.RoundEnded(1)},
			wantErrIs: sharedtypes.ErrInvalidTransition,
		},
		{
			name:      "round past scheduled rounds",
			boutID:    "co-main",
			signals:   []livedomain.Signal{livedomain.RoundStarted(4)},
			wantErrIs: sharedtypes.ErrInvalidTransition,
		},
		{
			name:      "skipping a round",
			boutID:    "main",
			signals:   []livedomain.Signal{livedomain.RoundStarted(1), livedomain.RoundEnded(1), livedomain.RoundStarted(3)},
			wantErrIs: sharedtypes.ErrInvalidTransition,
		},
		{
			name:      "canceled bout",
			boutID:    "off",
			signals:   []livedomain.Signal{livedomain.RoundStarted(1)},
			wantErrIs: sharedtypes.ErrInvalidBoutState,
		},
		{
			name:      "unknown bout",
			boutID:    "ghost",
			signals:   []livedomain.Signal{livedomain.RoundStarted(1)},
			wantErrIs: sharedtypes.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			var err error
			for _, sig := range tt.signals {
				_, err = h.tracker.ApplySignal(context.Background(), tt.boutID, sig)
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErrIs)
		})
	}
}

func TestApplySignalUpsertFailureCancelsWindow(t *testing.T) {
	h := newHarness(t)
	h.apply(t, "main", livedomain.RoundStarted(1))

	h.repo.UpsertFunc = func(context.Context, bun.IDB, *livedb.BoutState) error {
		return errors.New("connection reset")
	}
	_, err := h.tracker.ApplySignal(context.Background(), "main", livedomain.RoundEnded(1))
	require.Error(t, err)
	assert.False(t, sharedtypes.IsDomainError(err))

	open, _ := h.tracker.IsScoringOpen(context.Background(), "main", 1)
	assert.False(t, open)
}

func TestGraceExpiryClosesWindow(t *testing.T) {
	h := newHarness(t)
	h.apply(t, "main", livedomain.RoundStarted(1), livedomain.RoundEnded(1))

	h.clock.Advance(90 * time.Second)

	// The status update is published after the close.
	statusTopic := eventbus.ScopedTopic(liveevents.StatusUpdatedV1, testEvent.String())
	require.Eventually(t, func() bool {
		var p liveevents.StatusUpdatedPayloadV1
		return h.pub.Decode(statusTopic, &p)
	}, time.Second, time.Millisecond)

	closedTopic := eventbus.ScopedTopic(liveevents.ScoringClosedV1, testEvent.String())

	var closed liveevents.ScoringClosedPayloadV1
	require.True(t, h.pub.Decode(closedTopic, &closed))
	assert.Equal(t, liveevents.ScoringClosedPayloadV1{EventID: testEvent, BoutID: "main", Round: 1, Reason: liveevents.ReasonGraceExpired}, closed)

	var status liveevents.StatusUpdatedPayloadV1
	require.True(t, h.pub.Decode(statusTopic, &status))
	assert.False(t, status.IsScoring)
	assert.Equal(t, sharedtypes.PhaseRoundBreak, status.Phase)

	stored, _ := h.repo.State("main")
	assert.Nil(t, stored.WindowRound)

	open, _ := h.tracker.IsScoringOpen(context.Background(), "main", 1)
	assert.False(t, open)

	// A round start after expiry has nothing left to close.
	tr := h.apply(t, "main", livedomain.RoundStarted(2))
	assert.Nil(t, tr.Closed)
}

func TestFightEnded(t *testing.T) {
	t.Run("requests grading when a result is stored", func(t *testing.T) {
		h := newHarness(t)
		h.lookup.Results["co-main"] = &eventdb.Result{BoutID: "co-main", WinnerCorner: sharedtypes.CornerRed}
		h.apply(t, "co-main", livedomain.RoundStarted(1), livedomain.RoundEnded(1))

		tr := h.apply(t, "co-main", livedomain.FightEnded())
		assert.Equal(t, sharedtypes.PhaseComplete, tr.Status.Phase)
		assert.False(t, tr.Status.IsLive)
		assert.True(t, tr.GradingRequested)
		assert.Nil(t, tr.Closed)

		// Redelivery asks again; grading is idempotent.
		tr = h.apply(t, "co-main", livedomain.FightEnded())
		assert.False(t, tr.Changed)
		assert.True(t, tr.GradingRequested)
	})

	t.Run("waits for the result otherwise", func(t *testing.T) {
		h := newHarness(t)
		h.apply(t, "co-main", livedomain.RoundStarted(1))

		tr := h.apply(t, "co-main", livedomain.FightEnded())
		assert.Equal(t, sharedtypes.PhaseComplete, tr.Status.Phase)
		assert.Equal(t, 1, tr.Status.CurrentRound)
		assert.False(t, tr.GradingRequested)
		assert.Nil(t, tr.Closed)
	})
}

func TestFightEndedKeepsLastRoundOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for round := 1; round <= 3; round++ {
		h.apply(t, "co-main", livedomain.RoundStarted(round), livedomain.RoundEnded(round))
	}
	h.clock.Advance(5 * time.Second)

	tr := h.apply(t, "co-main", livedomain.FightEnded())
	assert.Nil(t, tr.Closed)
	assert.Equal(t, sharedtypes.PhaseComplete, tr.Status.Phase)
	assert.True(t, tr.Status.IsScoring)
	assert.Equal(t, 3, tr.Status.ScoringRound)

	open, err := h.tracker.IsScoringOpen(ctx, "co-main", 3)
	require.NoError(t, err)
	assert.True(t, open)

	stored, _ := h.repo.State("co-main")
	require.NotNil(t, stored.WindowRound)
	assert.Equal(t, 3, *stored.WindowRound)

	// The window still ends on its own timer.
	h.clock.Advance(85 * time.Second)
	closedTopic := eventbus.ScopedTopic(liveevents.ScoringClosedV1, testEvent.String())
	require.Eventually(t, func() bool {
		var closed liveevents.ScoringClosedPayloadV1
		return h.pub.Decode(closedTopic, &closed) && closed.Reason == liveevents.ReasonGraceExpired
	}, time.Second, time.Millisecond)

	open, _ = h.tracker.IsScoringOpen(ctx, "co-main", 3)
	assert.False(t, open)
	stored, _ = h.repo.State("co-main")
	assert.Nil(t, stored.WindowRound)
	assert.Equal(t, sharedtypes.PhaseComplete, stored.PhaseValue().Kind)
}

func TestReconcile(t *testing.T) {
	h := newHarness(t)

	running := livedb.BoutState{BoutID: "main", EventID: testEvent, ScheduledRounds: 5}
	running.SetPhase(sharedtypes.Phase{Kind: sharedtypes.PhaseRoundBreak, Round: 2})
	running.OpenWindow(2, fightNight.Add(40*time.Second))
	h.repo.Put(running)

	stale := livedb.BoutState{BoutID: "co-main", EventID: testEvent, ScheduledRounds: 3}
	stale.SetPhase(sharedtypes.Phase{Kind: sharedtypes.PhaseRoundBreak, Round: 1})
	stale.OpenWindow(1, fightNight.Add(-time.Second))
	h.repo.Put(stale)

	summary, err := h.tracker.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileSummary{Rearmed: 1, Closed: 1}, summary)

	open, _ := h.tracker.IsScoringOpen(context.Background(), "main", 2)
	assert.True(t, open)

	stored, _ := h.repo.State("co-main")
	assert.Nil(t, stored.WindowClosesAt)

	var closed liveevents.ScoringClosedPayloadV1
	require.True(t, h.pub.Decode(eventbus.ScopedTopic(liveevents.ScoringClosedV1, testEvent.String()), &closed))
	assert.Equal(t, sharedtypes.BoutID("co-main"), closed.BoutID)
	assert.Equal(t, liveevents.ReasonGraceExpired, closed.Reason)

	// Running it again finds the re-armed window already in place.
	summary, err = h.tracker.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileSummary{}, summary)

	// The re-armed timer keeps the original deadline.
	h.clock.Advance(40 * time.Second)
	require.Eventually(t, func() bool {
		s, _ := h.repo.State("main")
		return s.WindowClosesAt == nil
	}, time.Second, time.Millisecond)
}

func TestReconcileSkipsWindowClosedSinceListing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.apply(t, "main", livedomain.RoundStarted(1), livedomain.RoundEnded(1))

	listed, ok := h.repo.State("main")
	require.True(t, ok)
	require.NotNil(t, listed.WindowRound)

	h.apply(t, "main", livedomain.RoundStarted(2))
	h.repo.ListOpenWindowsFunc = func(context.Context, bun.IDB) ([]livedb.BoutState, error) {
		return []livedb.BoutState{listed}, nil
	}

	summary, err := h.tracker.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ReconcileSummary{}, summary)

	open, _ := h.tracker.IsScoringOpen(ctx, "main", 1)
	assert.False(t, open)

	stored, _ := h.repo.State("main")
	assert.Equal(t, sharedtypes.Phase{Kind: sharedtypes.PhaseRoundLive, Round: 2}, stored.PhaseValue())
	assert.Nil(t, stored.WindowRound)
}

func TestReconcileRearmsAfterFightEnded(t *testing.T) {
	h := newHarness(t)

	done := livedb.BoutState{BoutID: "co-main", EventID: testEvent, ScheduledRounds: 3}
	done.SetPhase(sharedtypes.Phase{Kind: sharedtypes.PhaseComplete, Round: 3})
	done.OpenWindow(3, fightNight.Add(30*time.Second))
	h.repo.Put(done)

	summary, err := h.tracker.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReconcileSummary{Rearmed: 1}, summary)

	open, _ := h.tracker.IsScoringOpen(context.Background(), "co-main", 3)
	assert.True(t, open)
}

func TestGetLiveStatus(t *testing.T) {
	h := newHarness(t)
	h.apply(t, "main", livedomain.RoundStarted(1), livedomain.RoundEnded(1))

	statuses, err := h.tracker.GetLiveStatus(context.Background(), []sharedtypes.BoutID{"main", "co-main", "off", "ghost"})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	assert.Equal(t, sharedtypes.PhaseRoundBreak, statuses["main"].Phase)
	assert.True(t, statuses["main"].IsScoring)
	assert.Equal(t, sharedtypes.PhaseScheduled, statuses["co-main"].Phase)
	assert.Equal(t, 3, statuses["co-main"].ScheduledRounds)
	assert.Equal(t, sharedtypes.PhaseComplete, statuses["off"].Phase)

	empty, err := h.tracker.GetLiveStatus(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetEventLive(t *testing.T) {
	h := newHarness(t)

	live, err := h.tracker.GetEventLive(context.Background(), testEvent)
	require.NoError(t, err)
	require.Len(t, live.Statuses, 3)
	assert.Equal(t, livedomain.DefaultPollingPolicy.Idle, live.PollInterval)

	h.apply(t, "main", livedomain.RoundStarted(1))
	live, err = h.tracker.GetEventLive(context.Background(), testEvent)
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.BoutID("main"), live.Statuses[0].BoutID)
	assert.True(t, live.Statuses[0].IsLive)
	assert.Equal(t, livedomain.DefaultPollingPolicy.Hot, live.PollInterval)

	_, err = h.tracker.GetEventLive(context.Background(), "missing")
	assert.ErrorIs(t, err, sharedtypes.ErrNotFound)
}

func TestGetEventLivePollingFollowsWindow(t *testing.T) {
	h := newHarness(t)
	h.apply(t, "main", livedomain.RoundStarted(1), livedomain.RoundEnded(1))

	live, err := h.tracker.GetEventLive(context.Background(), testEvent)
	require.NoError(t, err)
	assert.Equal(t, livedomain.DefaultPollingPolicy.Hot, live.PollInterval)

	h.clock.Advance(90 * time.Second)
	require.Eventually(t, func() bool {
		s, _ := h.repo.State("main")
		return s.WindowClosesAt == nil
	}, time.Second, time.Millisecond)

	// The break goes on but nothing can be scored, so the card is idle.
	live, err = h.tracker.GetEventLive(context.Background(), testEvent)
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.PhaseRoundBreak, live.Statuses[0].Phase)
	assert.False(t, live.Statuses[0].IsScoring)
	assert.Equal(t, livedomain.DefaultPollingPolicy.Idle, live.PollInterval)
	assert.ErrorIs(t, err, sharedtypes.ErrNotFound)
}

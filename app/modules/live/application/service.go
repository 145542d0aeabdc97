package liveservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	livedb "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	"github.com/Black-And-White-Club/ringside/pkg/observability/attr"
	"github.com/Black-And-White-Club/ringside/pkg/observability/metrics"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/Black-And-White-Club/ringside/pkg/utils/operation"
	"github.com/Black-And-White-Club/ringside/pkg/utils/results"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*Tracker)(nil)

// Tracker implements the Service interface. Signals, expiries and
// reconciliation for one bout are serialized; different bouts never wait
// on each other.
type Tracker struct {
	repo      livedb.Repository
	bouts     BoutLookup
	publisher message.Publisher
	grace     *livedomain.GraceRegistry
	clock     clockwork.Clock
	cfg       Config
	logger    *slog.Logger
	telemetry operation.Telemetry
	db        *bun.DB
	locks     sync.Map // sharedtypes.BoutID -> *sync.Mutex
}

// NewTracker creates a new Tracker. publisher receives the updates caused
// by windows expiring on their own.
func NewTracker(
	repo livedb.Repository,
	bouts BoutLookup,
	publisher message.Publisher,
	clock clockwork.Clock,
	cfg Config,
	logger *slog.Logger,
	opMetrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = livedomain.DefaultGracePeriod
	}
	if cfg.Polling == (livedomain.PollingPolicy{}) {
		cfg.Polling = livedomain.DefaultPollingPolicy
	}
	t := &Tracker{
		repo:      repo,
		bouts:     bouts,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		telemetry: operation.Telemetry{
			Service: "LiveTracker",
			Logger:  logger,
			Metrics: opMetrics,
			Tracer:  tracer,
		},
		db: db,
	}
	t.grace = livedomain.NewGraceRegistry(clock, t.expireWindow)
	return t
}

func (s *Tracker) lockBout(boutID sharedtypes.BoutID) func() {
	v, _ := s.locks.LoadOrStore(boutID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Tracker) ApplySignal(ctx context.Context, boutID sharedtypes.BoutID, sig livedomain.Signal) (*Transition, error) {
	unlock := s.lockBout(boutID)
	defer unlock()

	var opened bool
	tr, err := operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "ApplySignal", boutID.String(), func(ctx context.Context) (results.OperationResult[*Transition, error], error) {
		result, err := operation.RunInTx(ctx, s.db, func(ctx context.Context, db bun.IDB) (results.OperationResult[*Transition, error], error) {
			state, err := s.loadState(ctx, db, boutID)
			if err != nil {
				if sharedtypes.IsDomainError(err) {
					return results.FailureResult[*Transition, error](err), nil
				}
				return results.OperationResult[*Transition, error]{}, err
			}

			prev := state.PhaseValue()
			next, changed, err := livedomain.Transition(prev, sig, state.ScheduledRounds)
			if err != nil {
				return results.FailureResult[*Transition, error](err), nil
			}
			tr := &Transition{Previous: prev, Changed: changed}
			if !changed {
				tr.Status = s.statusOf(state)
				return results.SuccessResult[*Transition, error](tr), nil
			}

			switch next.Kind {
			case sharedtypes.PhaseRoundBreak:
				w := s.grace.Start(boutID, next.Round, s.cfg.GracePeriod)
				opened = true
				state.OpenWindow(w.Round, w.Deadline)
			case sharedtypes.PhaseRoundLive:
				tr.Closed = s.closeForNextRound(state)
			}
			state.SetPhase(next)

			if err := s.repo.Upsert(ctx, db, state); err != nil {
				return results.OperationResult[*Transition, error]{}, err
			}
			tr.Status = s.statusOf(state)
			return results.SuccessResult[*Transition, error](tr), nil
		})
		if err != nil || result.IsFailure() {
			return result, err
		}

		tr := *result.Success
		if tr.Status.Phase == sharedtypes.PhaseComplete {
			requested, err := s.hasResult(ctx, boutID)
			if err != nil {
				return results.OperationResult[*Transition, error]{}, err
			}
			tr.GradingRequested = requested
		}
		return result, nil
	}))
	if err != nil && opened {
		s.grace.Close(boutID)
	}
	return tr, err
}

// closeForNextRound ends whatever window the bout has because the next round
// started. When the timer already fired, the window is reported as expired so
// exactly one close is announced. A fight ending closes nothing: the last
// round stays open until its own timer runs out.
func (s *Tracker) closeForNextRound(state *livedb.BoutState) *ClosedWindow {
	w, closed := s.grace.Close(state.BoutID)
	if state.WindowRound == nil {
		return nil
	}

	reason := liveevents.ReasonRoundStarted
	if !closed {
		w = livedomain.Window{BoutID: state.BoutID, Round: *state.WindowRound, Deadline: *state.WindowClosesAt}
		if !s.clock.Now().Before(w.Deadline) {
			reason = liveevents.ReasonGraceExpired
		}
	}
	state.ClearWindow()
	return &ClosedWindow{Window: w, Reason: reason}
}

func (s *Tracker) hasResult(ctx context.Context, boutID sharedtypes.BoutID) (bool, error) {
	if _, err := s.bouts.GetResult(ctx, boutID); err != nil {
		if errors.Is(err, sharedtypes.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check result: %w", err)
	}
	return true, nil
}

// loadState returns the stored snapshot or a fresh SCHEDULED one for a bout
// the tracker has not seen yet.
func (s *Tracker) loadState(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*livedb.BoutState, error) {
	state, err := s.repo.Get(ctx, db, boutID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, livedb.ErrNotFound) {
		return nil, err
	}

	bc, err := s.bouts.GetBoutContext(ctx, boutID)
	if err != nil {
		return nil, err
	}
	if bc.Bout.Status.VoidsPicks() {
		return nil, fmt.Errorf("%w: bout %s is %s", sharedtypes.ErrInvalidBoutState, boutID, bc.Bout.Status)
	}
	return newState(*bc), nil
}

func newState(bc eventservice.BoutContext) *livedb.BoutState {
	state := &livedb.BoutState{
		BoutID:          bc.Bout.ID,
		EventID:         bc.EventID,
		ScheduledRounds: bc.ScheduledRounds,
	}
	state.SetPhase(livedomain.Scheduled)
	return state
}

// statusOf reads scoring from the timer registry, which decides when a
// window ends.
func (s *Tracker) statusOf(state *livedb.BoutState) LiveStatus {
	phase := state.PhaseValue()
	st := LiveStatus{
		EventID:         state.EventID,
		BoutID:          state.BoutID,
		Phase:           phase.Kind,
		CurrentRound:    phase.Round,
		ScheduledRounds: state.ScheduledRounds,
		IsLive:          phase.IsHot(),
	}
	if w, ok := s.grace.Current(state.BoutID); ok {
		deadline := w.Deadline
		st.IsScoring = true
		st.ScoringRound = w.Round
		st.WindowClosesAt = &deadline
	}
	return st
}

// defaultStatus describes a bout with no live snapshot. Bouts that are no
// longer scheduled will never go live.
func defaultStatus(bc eventservice.BoutContext) LiveStatus {
	kind := sharedtypes.PhaseScheduled
	if bc.Bout.Status != sharedtypes.BoutStatusScheduled {
		kind = sharedtypes.PhaseComplete
	}
	return LiveStatus{
		EventID:         bc.EventID,
		BoutID:          bc.Bout.ID,
		Phase:           kind,
		ScheduledRounds: bc.ScheduledRounds,
	}
}

func (s *Tracker) IsScoringOpen(_ context.Context, boutID sharedtypes.BoutID, round int) (bool, error) {
	return s.grace.IsOpen(boutID, round), nil
}

func (s *Tracker) GetLiveStatus(ctx context.Context, boutIDs []sharedtypes.BoutID) (map[sharedtypes.BoutID]LiveStatus, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetLiveStatus", fmt.Sprintf("%d bouts", len(boutIDs)), func(ctx context.Context) (results.OperationResult[map[sharedtypes.BoutID]LiveStatus, error], error) {
		out := make(map[sharedtypes.BoutID]LiveStatus, len(boutIDs))
		if len(boutIDs) == 0 {
			return results.SuccessResult[map[sharedtypes.BoutID]LiveStatus, error](out), nil
		}

		states, err := s.repo.ListByBoutIDs(ctx, nil, boutIDs)
		if err != nil {
			return results.OperationResult[map[sharedtypes.BoutID]LiveStatus, error]{}, err
		}
		for i := range states {
			out[states[i].BoutID] = s.statusOf(&states[i])
		}

		var missing []sharedtypes.BoutID
		for _, id := range boutIDs {
			if _, ok := out[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			bouts, err := s.bouts.ListBouts(ctx, missing)
			if err != nil {
				return results.OperationResult[map[sharedtypes.BoutID]LiveStatus, error]{}, err
			}
			for _, bc := range bouts {
				out[bc.Bout.ID] = defaultStatus(bc)
			}
		}
		return results.SuccessResult[map[sharedtypes.BoutID]LiveStatus, error](out), nil
	}))
}

func (s *Tracker) GetEventLive(ctx context.Context, eventID sharedtypes.EventID) (*EventLive, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "GetEventLive", eventID.String(), func(ctx context.Context) (results.OperationResult[*EventLive, error], error) {
		card, err := s.bouts.ListEventBouts(ctx, eventID)
		if err != nil {
			if sharedtypes.IsDomainError(err) {
				return results.FailureResult[*EventLive, error](err), nil
			}
			return results.OperationResult[*EventLive, error]{}, err
		}

		ids := make([]sharedtypes.BoutID, 0, len(card.Bouts))
		for _, bc := range card.Bouts {
			ids = append(ids, bc.Bout.ID)
		}
		states, err := s.repo.ListByBoutIDs(ctx, nil, ids)
		if err != nil {
			return results.OperationResult[*EventLive, error]{}, err
		}
		byID := make(map[sharedtypes.BoutID]*livedb.BoutState, len(states))
		for i := range states {
			byID[states[i].BoutID] = &states[i]
		}

		live := &EventLive{EventID: eventID, Statuses: make([]LiveStatus, 0, len(card.Bouts))}
		acts := make([]livedomain.BoutActivity, 0, len(card.Bouts))
		for _, bc := range card.Bouts {
			st := defaultStatus(bc)
			if state, ok := byID[bc.Bout.ID]; ok {
				st = s.statusOf(state)
			}
			live.Statuses = append(live.Statuses, st)
			acts = append(acts, livedomain.BoutActivity{Phase: st.PhaseValue(), WindowOpen: st.IsScoring})
		}
		live.PollInterval = s.cfg.Polling.IntervalFor(acts)
		return results.SuccessResult[*EventLive, error](live), nil
	}))
}

func (s *Tracker) Reconcile(ctx context.Context) (*ReconcileSummary, error) {
	return operation.Unwrap(operation.WithTelemetry(s.telemetry, ctx, "Reconcile", "open_windows", func(ctx context.Context) (results.OperationResult[*ReconcileSummary, error], error) {
		states, err := s.repo.ListOpenWindows(ctx, nil)
		if err != nil {
			return results.OperationResult[*ReconcileSummary, error]{}, err
		}

		summary := &ReconcileSummary{}
		for i := range states {
			rearmed, closed, err := s.reconcileOne(ctx, &states[i])
			if err != nil {
				return results.OperationResult[*ReconcileSummary, error]{}, err
			}
			if rearmed {
				summary.Rearmed++
			}
			if closed {
				summary.Closed++
			}
		}
		return results.SuccessResult[*ReconcileSummary, error](summary), nil
	}))
}

func (s *Tracker) reconcileOne(ctx context.Context, listed *livedb.BoutState) (rearmed, closed bool, err error) {
	if listed.WindowRound == nil || listed.WindowClosesAt == nil {
		return false, false, nil
	}
	unlock := s.lockBout(listed.BoutID)
	defer unlock()

	// A signal may have moved the bout on since the listing was read.
	state, err := s.repo.Get(ctx, nil, listed.BoutID)
	if err != nil {
		if errors.Is(err, livedb.ErrNotFound) {
			return false, false, nil
		}
		return false, false, err
	}
	round, deadline := *listed.WindowRound, *listed.WindowClosesAt
	if !windowMatches(state, round, deadline) {
		return false, false, nil
	}

	if s.grace.IsOpen(state.BoutID, round) {
		return false, false, nil
	}
	if s.clock.Now().Before(deadline) {
		s.grace.StartUntil(state.BoutID, round, deadline)
		s.logger.InfoContext(ctx, "Scoring window re-armed",
			attr.BoutID("bout_id", state.BoutID),
			attr.Int("round", round),
			attr.Time("closes_at", deadline),
		)
		return true, false, nil
	}

	cleared, err := s.repo.ClearWindow(ctx, nil, state.BoutID, round)
	if err != nil || !cleared {
		return false, false, err
	}
	state.ClearWindow()
	s.announceClosed(ctx, state, round, liveevents.ReasonGraceExpired)
	return false, true, nil
}

// windowMatches reports whether state still holds the window for round with
// the given deadline, in the break after that round or after the fight ended
// on it.
func windowMatches(state *livedb.BoutState, round int, deadline time.Time) bool {
	if state.WindowRound == nil || state.WindowClosesAt == nil {
		return false
	}
	if *state.WindowRound != round || !state.WindowClosesAt.Equal(deadline) {
		return false
	}
	phase := state.PhaseValue()
	if phase.Round != round {
		return false
	}
	return phase.Kind == sharedtypes.PhaseRoundBreak || phase.Kind == sharedtypes.PhaseComplete
}

// expireWindow runs on the timer goroutine when a window ends on its own.
func (s *Tracker) expireWindow(boutID sharedtypes.BoutID, round int) {
	ctx := context.Background()
	unlock := s.lockBout(boutID)
	defer unlock()

	cleared, err := s.repo.ClearWindow(ctx, nil, boutID, round)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear expired window",
			attr.BoutID("bout_id", boutID),
			attr.Int("round", round),
			attr.Error(err),
		)
		return
	}
	if !cleared {
		return
	}

	state, err := s.repo.Get(ctx, nil, boutID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load state for expired window",
			attr.BoutID("bout_id", boutID),
			attr.Error(err),
		)
		return
	}
	s.announceClosed(ctx, state, round, liveevents.ReasonGraceExpired)
}

func (s *Tracker) announceClosed(ctx context.Context, state *livedb.BoutState, round int, reason string) {
	s.logger.InfoContext(ctx, "Scoring window closed",
		attr.BoutID("bout_id", state.BoutID),
		attr.Int("round", round),
		attr.String("reason", reason),
	)
	if s.publisher == nil {
		return
	}

	scope := state.EventID.String()
	if err := eventbus.PublishScoped(ctx, s.publisher, liveevents.ScoringClosedV1, scope, ClosedPayload(state.EventID, ClosedWindow{
		Window: livedomain.Window{BoutID: state.BoutID, Round: round},
		Reason: reason,
	})); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish scoring closed", attr.BoutID("bout_id", state.BoutID), attr.Error(err))
	}
	if err := eventbus.PublishScoped(ctx, s.publisher, liveevents.StatusUpdatedV1, scope, StatusPayload(s.statusOf(state))); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish live status", attr.BoutID("bout_id", state.BoutID), attr.Error(err))
	}
}

func (s *Tracker) Shutdown() {
	s.grace.CloseAll()
}

// StatusPayload converts a status into its outbound payload.
func StatusPayload(st LiveStatus) *liveevents.StatusUpdatedPayloadV1 {
	return &liveevents.StatusUpdatedPayloadV1{
		EventID:         st.EventID,
		BoutID:          st.BoutID,
		Phase:           st.Phase,
		CurrentRound:    st.CurrentRound,
		ScheduledRounds: st.ScheduledRounds,
		IsLive:          st.IsLive,
		IsScoring:       st.IsScoring,
		WindowClosesAt:  st.WindowClosesAt,
	}
}

// ClosedPayload converts a closed window into its outbound payload.
func ClosedPayload(eventID sharedtypes.EventID, c ClosedWindow) *liveevents.ScoringClosedPayloadV1 {
	return &liveevents.ScoringClosedPayloadV1{
		EventID: eventID,
		BoutID:  c.Window.BoutID,
		Round:   c.Window.Round,
		Reason:  c.Reason,
	}
}

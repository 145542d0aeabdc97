package scorecardservice

import (
	"context"
	"sort"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	scorecarddb "github.com/Black-And-White-Club/ringside/app/modules/scorecard/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Scorecard Repo
// ------------------------

type scoreKey struct {
	user  sharedtypes.UserID
	bout  sharedtypes.BoutID
	round int
}

// FakeScorecardRepo upserts into a map keyed like the real table.
type FakeScorecardRepo struct {
	trace  []string
	scores map[scoreKey]scorecarddb.RoundScore

	UpsertFunc       func(ctx context.Context, db bun.IDB, score *scorecarddb.RoundScore) error
	ListForBoutsFunc func(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]scorecarddb.RoundScore, error)
}

func NewFakeScorecardRepo() *FakeScorecardRepo {
	return &FakeScorecardRepo{trace: []string{}, scores: map[scoreKey]scorecarddb.RoundScore{}}
}

func (f *FakeScorecardRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeScorecardRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeScorecardRepo) Upsert(ctx context.Context, db bun.IDB, score *scorecarddb.RoundScore) error {
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, score)
	}
	f.scores[scoreKey{score.UserID, score.BoutID, score.Round}] = *score
	return nil
}

func (f *FakeScorecardRepo) ListForRound(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) ([]scorecarddb.RoundScore, error) {
	f.record("ListForRound")
	var out []scorecarddb.RoundScore
	for k, s := range f.scores {
		if k.bout == boutID && k.round == round {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeScorecardRepo) ListForBouts(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]scorecarddb.RoundScore, error) {
	f.record("ListForBouts")
	if f.ListForBoutsFunc != nil {
		return f.ListForBoutsFunc(ctx, db, boutIDs)
	}
	want := make(map[sharedtypes.BoutID]bool, len(boutIDs))
	for _, id := range boutIDs {
		want[id] = true
	}
	var out []scorecarddb.RoundScore
	for k, s := range f.scores {
		if want[k.bout] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BoutID != out[j].BoutID {
			return out[i].BoutID < out[j].BoutID
		}
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

var _ scorecarddb.Repository = (*FakeScorecardRepo)(nil)

// ------------------------
// Fake Gate
// ------------------------

// FakeGate opens the rounds listed in Open.
type FakeGate struct {
	Open map[sharedtypes.BoutID]int
	Err  error
}

func (f *FakeGate) IsScoringOpen(ctx context.Context, boutID sharedtypes.BoutID, round int) (bool, error) {
	if f.Err != nil {
		return false, f.Err
	}
	r, ok := f.Open[boutID]
	return ok && r == round, nil
}

// ------------------------
// Fake Bout Lookup
// ------------------------

type FakeBoutLookup struct {
	Bouts map[sharedtypes.BoutID]*eventservice.BoutContext
	Card  *eventservice.EventCard
}

func (f *FakeBoutLookup) GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error) {
	if bc, ok := f.Bouts[boutID]; ok {
		return bc, nil
	}
	return nil, eventdb.ErrNotFound
}

func (f *FakeBoutLookup) ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error) {
	if f.Card == nil || f.Card.Event.ID != eventID {
		return nil, eventdb.ErrNotFound
	}
	return f.Card, nil
}

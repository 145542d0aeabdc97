package pickservice

import (
	"context"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Pick Repo
// ------------------------

type FakePickRepo struct {
	trace []string

	UpsertFunc              func(ctx context.Context, db bun.IDB, pick *pickdb.Pick) (*pickdb.Pick, error)
	GetFunc                 func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) (*pickdb.Pick, error)
	DeleteFunc              func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error
	ListForUserAndBoutsFunc func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]pickdb.Pick, error)
	ListForBoutFunc         func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]pickdb.Pick, error)
	VoidForBoutFunc         func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (int, error)
	UpdateGradeFunc         func(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error
}

func NewFakePickRepo() *FakePickRepo {
	return &FakePickRepo{trace: []string{}}
}

func (f *FakePickRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePickRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakePickRepo) Upsert(ctx context.Context, db bun.IDB, pick *pickdb.Pick) (*pickdb.Pick, error) {
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, pick)
	}
	stored := *pick
	stored.Status = sharedtypes.PickStatusActive
	stored.Score = nil
	return &stored, nil
}

func (f *FakePickRepo) Get(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) (*pickdb.Pick, error) {
	f.record("Get")
	if f.GetFunc != nil {
		return f.GetFunc(ctx, db, userID, boutID)
	}
	return nil, pickdb.ErrNotFound
}

func (f *FakePickRepo) Delete(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error {
	f.record("Delete")
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, db, userID, boutID)
	}
	return nil
}

func (f *FakePickRepo) ListForUserAndBouts(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutIDs []sharedtypes.BoutID) ([]pickdb.Pick, error) {
	f.record("ListForUserAndBouts")
	if f.ListForUserAndBoutsFunc != nil {
		return f.ListForUserAndBoutsFunc(ctx, db, userID, boutIDs)
	}
	return nil, nil
}

func (f *FakePickRepo) ListForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) ([]pickdb.Pick, error) {
	f.record("ListForBout")
	if f.ListForBoutFunc != nil {
		return f.ListForBoutFunc(ctx, db, boutID)
	}
	return nil, nil
}

func (f *FakePickRepo) VoidForBout(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (int, error) {
	f.record("VoidForBout")
	if f.VoidForBoutFunc != nil {
		return f.VoidForBoutFunc(ctx, db, boutID)
	}
	return 0, nil
}

func (f *FakePickRepo) UpdateGrade(ctx context.Context, db bun.IDB, userID sharedtypes.UserID, boutID sharedtypes.BoutID, status sharedtypes.PickStatus, score *int) error {
	f.record("UpdateGrade")
	if f.UpdateGradeFunc != nil {
		return f.UpdateGradeFunc(ctx, db, userID, boutID, status, score)
	}
	return nil
}

var _ pickdb.Repository = (*FakePickRepo)(nil)

// ------------------------
// Fake Bout Lookup
// ------------------------

type FakeBoutLookup struct {
	Bouts   map[sharedtypes.BoutID]*eventservice.BoutContext
	Card    *eventservice.EventCard
	Results map[sharedtypes.BoutID]*eventdb.Result
	Err     error
}

func (f *FakeBoutLookup) GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if bc, ok := f.Bouts[boutID]; ok {
		return bc, nil
	}
	return nil, eventdb.ErrNotFound
}

func (f *FakeBoutLookup) ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Card == nil || f.Card.Event.ID != eventID {
		return nil, eventdb.ErrNotFound
	}
	return f.Card, nil
}

func (f *FakeBoutLookup) GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error) {
	if r, ok := f.Results[boutID]; ok {
		return r, nil
	}
	return nil, eventdb.ErrNotFound
}

// ------------------------
// Fake Cache
// ------------------------

type FakeCache struct {
	Invalidated []sharedtypes.BoutID
	Err         error
}

func (f *FakeCache) Invalidate(ctx context.Context, boutIDs ...sharedtypes.BoutID) error {
	f.Invalidated = append(f.Invalidated, boutIDs...)
	return f.Err
}

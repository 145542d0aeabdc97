package eventservice

import (
	"context"
	"time"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Event Repo
// ------------------------

type FakeEventRepo struct {
	trace []string

	GetEventFunc         func(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*eventdb.Event, error)
	UpsertEventFunc      func(ctx context.Context, db bun.IDB, event *eventdb.Event) error
	RescheduleEventFunc  func(ctx context.Context, db bun.IDB, id sharedtypes.EventID, start time.Time) error
	MarkPicksLockedFunc  func(ctx context.Context, db bun.IDB, id sharedtypes.EventID, at time.Time) error
	GetBoutFunc          func(ctx context.Context, db bun.IDB, id sharedtypes.BoutID) (*eventdb.Bout, error)
	GetBoutsByEventFunc  func(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]eventdb.Bout, error)
	GetBoutsByIDsFunc    func(ctx context.Context, db bun.IDB, ids []sharedtypes.BoutID) ([]eventdb.Bout, error)
	UpsertBoutFunc       func(ctx context.Context, db bun.IDB, bout *eventdb.Bout) error
	UpdateBoutStatusFunc func(ctx context.Context, db bun.IDB, id sharedtypes.BoutID, status sharedtypes.BoutStatus) error
	GetResultFunc        func(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*eventdb.Result, error)
	UpsertResultFunc     func(ctx context.Context, db bun.IDB, result *eventdb.Result) error
}

func NewFakeEventRepo() *FakeEventRepo {
	return &FakeEventRepo{trace: []string{}}
}

func (f *FakeEventRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeEventRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeEventRepo) GetEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*eventdb.Event, error) {
	f.record("GetEvent")
	if f.GetEventFunc != nil {
		return f.GetEventFunc(ctx, db, id)
	}
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventRepo) UpsertEvent(ctx context.Context, db bun.IDB, event *eventdb.Event) error {
	f.record("UpsertEvent")
	if f.UpsertEventFunc != nil {
		return f.UpsertEventFunc(ctx, db, event)
	}
	return nil
}

func (f *FakeEventRepo) RescheduleEvent(ctx context.Context, db bun.IDB, id sharedtypes.EventID, start time.Time) error {
	f.record("RescheduleEvent")
	if f.RescheduleEventFunc != nil {
		return f.RescheduleEventFunc(ctx, db, id, start)
	}
	return nil
}

func (f *FakeEventRepo) MarkPicksLocked(ctx context.Context, db bun.IDB, id sharedtypes.EventID, at time.Time) error {
	f.record("MarkPicksLocked")
	if f.MarkPicksLockedFunc != nil {
		return f.MarkPicksLockedFunc(ctx, db, id, at)
	}
	return nil
}

func (f *FakeEventRepo) GetBout(ctx context.Context, db bun.IDB, id sharedtypes.BoutID) (*eventdb.Bout, error) {
	f.record("GetBout")
	if f.GetBoutFunc != nil {
		return f.GetBoutFunc(ctx, db, id)
	}
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventRepo) GetBoutsByEvent(ctx context.Context, db bun.IDB, eventID sharedtypes.EventID) ([]eventdb.Bout, error) {
	f.record("GetBoutsByEvent")
	if f.GetBoutsByEventFunc != nil {
		return f.GetBoutsByEventFunc(ctx, db, eventID)
	}
	return nil, nil
}

func (f *FakeEventRepo) GetBoutsByIDs(ctx context.Context, db bun.IDB, ids []sharedtypes.BoutID) ([]eventdb.Bout, error) {
	f.record("GetBoutsByIDs")
	if f.GetBoutsByIDsFunc != nil {
		return f.GetBoutsByIDsFunc(ctx, db, ids)
	}
	return nil, nil
}

func (f *FakeEventRepo) UpsertBout(ctx context.Context, db bun.IDB, bout *eventdb.Bout) error {
	f.record("UpsertBout")
	if f.UpsertBoutFunc != nil {
		return f.UpsertBoutFunc(ctx, db, bout)
	}
	return nil
}

func (f *FakeEventRepo) UpdateBoutStatus(ctx context.Context, db bun.IDB, id sharedtypes.BoutID, status sharedtypes.BoutStatus) error {
	f.record("UpdateBoutStatus")
	if f.UpdateBoutStatusFunc != nil {
		return f.UpdateBoutStatusFunc(ctx, db, id, status)
	}
	return nil
}

func (f *FakeEventRepo) GetResult(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*eventdb.Result, error) {
	f.record("GetResult")
	if f.GetResultFunc != nil {
		return f.GetResultFunc(ctx, db, boutID)
	}
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventRepo) UpsertResult(ctx context.Context, db bun.IDB, result *eventdb.Result) error {
	f.record("UpsertResult")
	if f.UpsertResultFunc != nil {
		return f.UpsertResultFunc(ctx, db, result)
	}
	return nil
}

var _ eventdb.Repository = (*FakeEventRepo)(nil)

// ------------------------
// Fake Lock Scheduler
// ------------------------

type FakeLockScheduler struct {
	trace     []string
	scheduled map[sharedtypes.EventID]time.Time

	ScheduleErr error
	CancelErr   error
}

func NewFakeLockScheduler() *FakeLockScheduler {
	return &FakeLockScheduler{scheduled: map[sharedtypes.EventID]time.Time{}}
}

func (f *FakeLockScheduler) SchedulePicksLock(ctx context.Context, eventID sharedtypes.EventID, at time.Time) error {
	f.trace = append(f.trace, "SchedulePicksLock")
	if f.ScheduleErr != nil {
		return f.ScheduleErr
	}
	f.scheduled[eventID] = at
	return nil
}

func (f *FakeLockScheduler) CancelPicksLock(ctx context.Context, eventID sharedtypes.EventID) error {
	f.trace = append(f.trace, "CancelPicksLock")
	if f.CancelErr != nil {
		return f.CancelErr
	}
	delete(f.scheduled, eventID)
	return nil
}

var _ LockScheduler = (*FakeLockScheduler)(nil)

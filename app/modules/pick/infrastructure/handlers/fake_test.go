package pickhandlers

import (
	"context"

	pickservice "github.com/Black-And-White-Club/ringside/app/modules/pick/application"
	pickdb "github.com/Black-And-White-Club/ringside/app/modules/pick/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// ------------------------
// Fake Pick Service
// ------------------------

type FakePickService struct {
	trace []string

	VoidPicksForBoutFunc    func(ctx context.Context, boutID sharedtypes.BoutID) (int, error)
	GradeBoutFunc           func(ctx context.Context, boutID sharedtypes.BoutID, winner sharedtypes.Corner) (*pickservice.GradeSummary, error)
	GradeBoutFromResultFunc func(ctx context.Context, boutID sharedtypes.BoutID) (*pickservice.GradeSummary, error)
}

func NewFakePickService() *FakePickService {
	return &FakePickService{trace: []string{}}
}

func (f *FakePickService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePickService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakePickService) UpsertPick(ctx context.Context, req pickservice.UpsertPickRequest) (*pickdb.Pick, error) {
	f.record("UpsertPick")
	return nil, nil
}

func (f *FakePickService) DeletePick(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID) error {
	f.record("DeletePick")
	return nil
}

func (f *FakePickService) SelectCorner(ctx context.Context, userID sharedtypes.UserID, boutID sharedtypes.BoutID, corner string) (*pickservice.Selection, error) {
	f.record("SelectCorner")
	return nil, nil
}

func (f *FakePickService) VoidPicksForBout(ctx context.Context, boutID sharedtypes.BoutID) (int, error) {
	f.record("VoidPicksForBout")
	if f.VoidPicksForBoutFunc != nil {
		return f.VoidPicksForBoutFunc(ctx, boutID)
	}
	return 0, nil
}

func (f *FakePickService) GradeBout(ctx context.Context, boutID sharedtypes.BoutID, winner sharedtypes.Corner) (*pickservice.GradeSummary, error) {
	f.record("GradeBout")
	if f.GradeBoutFunc != nil {
		return f.GradeBoutFunc(ctx, boutID, winner)
	}
	return &pickservice.GradeSummary{BoutID: boutID, Winner: winner}, nil
}

func (f *FakePickService) GradeBoutFromResult(ctx context.Context, boutID sharedtypes.BoutID) (*pickservice.GradeSummary, error) {
	f.record("GradeBoutFromResult")
	if f.GradeBoutFromResultFunc != nil {
		return f.GradeBoutFromResultFunc(ctx, boutID)
	}
	return &pickservice.GradeSummary{BoutID: boutID}, nil
}

func (f *FakePickService) GetBoutsForEvent(ctx context.Context, eventID sharedtypes.EventID, userID sharedtypes.UserID) (*pickservice.EventBouts, error) {
	f.record("GetBoutsForEvent")
	return nil, nil
}

var _ pickservice.Service = (*FakePickService)(nil)

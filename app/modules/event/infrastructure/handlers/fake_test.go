package eventhandlers

import (
	"context"
	"time"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	feedevents "github.com/Black-And-White-Club/ringside/pkg/events/feed"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// ------------------------
// Fake Event Service
// ------------------------

type FakeEventService struct {
	trace []string

	IngestCardFunc       func(ctx context.Context, card feedevents.CardPublishedPayloadV1) (*eventdb.Event, error)
	RescheduleEventFunc  func(ctx context.Context, eventID sharedtypes.EventID, start time.Time) (*eventdb.Event, error)
	RecordBoutStatusFunc func(ctx context.Context, boutID sharedtypes.BoutID, status sharedtypes.BoutStatus) (*eventservice.StatusChange, error)
	RecordResultFunc     func(ctx context.Context, payload feedevents.BoutResultRecordedPayloadV1) (*eventservice.StoredResult, error)
}

func NewFakeEventService() *FakeEventService {
	return &FakeEventService{trace: []string{}}
}

func (f *FakeEventService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeEventService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeEventService) IngestCard(ctx context.Context, card feedevents.CardPublishedPayloadV1) (*eventdb.Event, error) {
	f.record("IngestCard")
	if f.IngestCardFunc != nil {
		return f.IngestCardFunc(ctx, card)
	}
	return &eventdb.Event{ID: card.EventID}, nil
}

func (f *FakeEventService) RescheduleEvent(ctx context.Context, eventID sharedtypes.EventID, start time.Time) (*eventdb.Event, error) {
	f.record("RescheduleEvent")
	if f.RescheduleEventFunc != nil {
		return f.RescheduleEventFunc(ctx, eventID, start)
	}
	return &eventdb.Event{ID: eventID, ScheduledStart: start}, nil
}

func (f *FakeEventService) RescheduleEventFromText(ctx context.Context, eventID sharedtypes.EventID, text string) (*eventdb.Event, error) {
	f.record("RescheduleEventFromText")
	return nil, nil
}

func (f *FakeEventService) RecordBoutStatus(ctx context.Context, boutID sharedtypes.BoutID, status sharedtypes.BoutStatus) (*eventservice.StatusChange, error) {
	f.record("RecordBoutStatus")
	if f.RecordBoutStatusFunc != nil {
		return f.RecordBoutStatusFunc(ctx, boutID, status)
	}
	return &eventservice.StatusChange{BoutID: boutID, Current: status}, nil
}

func (f *FakeEventService) RecordResult(ctx context.Context, payload feedevents.BoutResultRecordedPayloadV1) (*eventservice.StoredResult, error) {
	f.record("RecordResult")
	if f.RecordResultFunc != nil {
		return f.RecordResultFunc(ctx, payload)
	}
	return nil, nil
}

func (f *FakeEventService) GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error) {
	f.record("GetResult")
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventService) GetBoutContext(ctx context.Context, boutID sharedtypes.BoutID) (*eventservice.BoutContext, error) {
	f.record("GetBoutContext")
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventService) ListEventBouts(ctx context.Context, eventID sharedtypes.EventID) (*eventservice.EventCard, error) {
	f.record("ListEventBouts")
	return nil, eventdb.ErrNotFound
}

func (f *FakeEventService) ListBouts(ctx context.Context, boutIDs []sharedtypes.BoutID) ([]eventservice.BoutContext, error) {
	f.record("ListBouts")
	return nil, nil
}

func (f *FakeEventService) IsLocked(ctx context.Context, eventID sharedtypes.EventID) (bool, error) {
	f.record("IsLocked")
	return false, nil
}

var _ eventservice.Service = (*FakeEventService)(nil)

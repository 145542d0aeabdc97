package liveservice

import (
	"context"
	"encoding/json"
	"sync"

	eventservice "github.com/Black-And-White-Club/ringside/app/modules/event/application"
	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	livedb "github.com/Black-And-White-Club/ringside/app/modules/live/infrastructure/repositories"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Live Repo
// ------------------------

// FakeLiveRepo keeps snapshots in memory unless a Func override is set.
// Timer callbacks reach it from other goroutines, so it locks.
type FakeLiveRepo struct {
	mu     sync.Mutex
	trace  []string
	States map[sharedtypes.BoutID]livedb.BoutState

	UpsertFunc          func(ctx context.Context, db bun.IDB, state *livedb.BoutState) error
	ListOpenWindowsFunc func(ctx context.Context, db bun.IDB) ([]livedb.BoutState, error)
}

func NewFakeLiveRepo() *FakeLiveRepo {
	return &FakeLiveRepo{trace: []string{}, States: map[sharedtypes.BoutID]livedb.BoutState{}}
}

func (f *FakeLiveRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeLiveRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeLiveRepo) State(boutID sharedtypes.BoutID) (livedb.BoutState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.States[boutID]
	return s, ok
}

func (f *FakeLiveRepo) Put(state livedb.BoutState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.States[state.BoutID] = state
}

func (f *FakeLiveRepo) Get(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID) (*livedb.BoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Get")
	s, ok := f.States[boutID]
	if !ok {
		return nil, livedb.ErrNotFound
	}
	return &s, nil
}

func (f *FakeLiveRepo) Upsert(ctx context.Context, db bun.IDB, state *livedb.BoutState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, state)
	}
	f.States[state.BoutID] = *state
	return nil
}

func (f *FakeLiveRepo) ListByBoutIDs(ctx context.Context, db bun.IDB, boutIDs []sharedtypes.BoutID) ([]livedb.BoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListByBoutIDs")
	var out []livedb.BoutState
	for _, id := range boutIDs {
		if s, ok := f.States[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeLiveRepo) ListOpenWindows(ctx context.Context, db bun.IDB) ([]livedb.BoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListOpenWindows")
	if f.ListOpenWindowsFunc != nil {
		return f.ListOpenWindowsFunc(ctx, db)
	}
	var out []livedb.BoutState
	for _, s := range f.States {
		if s.WindowClosesAt != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeLiveRepo) ClearWindow(ctx context.Context, db bun.IDB, boutID sharedtypes.BoutID, round int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ClearWindow")
	s, ok := f.States[boutID]
	if !ok || s.WindowRound == nil || *s.WindowRound != round {
		return false, nil
	}
	s.ClearWindow()
	f.States[boutID] = s
	return true, nil
}

var _ livedb.Repository = (*FakeLiveRepo)(nil)

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

func (f *FakeBoutLookup) ListBouts(ctx context.Context, boutIDs []sharedtypes.BoutID) ([]eventservice.BoutContext, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []eventservice.BoutContext
	for _, id := range boutIDs {
		if bc, ok := f.Bouts[id]; ok {
			out = append(out, *bc)
		}
	}
	return out, nil
}

func (f *FakeBoutLookup) GetResult(ctx context.Context, boutID sharedtypes.BoutID) (*eventdb.Result, error) {
	if r, ok := f.Results[boutID]; ok {
		return r, nil
	}
	return nil, eventdb.ErrNotFound
}

// ------------------------
// Fake Publisher
// ------------------------

type published struct {
	Topic   string
	Payload []byte
}

type FakePublisher struct {
	mu       sync.Mutex
	messages []published
}

func (f *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range messages {
		t := m.Metadata.Get(eventbus.TopicMetadataKey)
		if t == "" {
			t = topic
		}
		f.messages = append(f.messages, published{Topic: t, Payload: m.Payload})
	}
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Topic)
	}
	return out
}

// Decode unmarshals the last message published on topic into v.
func (f *FakePublisher) Decode(topic string, v any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Topic == topic {
			return json.Unmarshal(f.messages[i].Payload, v) == nil
		}
	}
	return false
}

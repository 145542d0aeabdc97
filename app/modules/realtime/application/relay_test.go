package realtimeservice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	eventdb "github.com/Black-And-White-Club/ringside/app/modules/event/infrastructure/repositories"
	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	"github.com/Black-And-White-Club/ringside/pkg/eventbus"
	liveevents "github.com/Black-And-White-Club/ringside/pkg/events/live"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames []Frame
}

func (f *fakeBroadcaster) Broadcast(eventID sharedtypes.EventID, frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

type fakeSnapshotter struct {
	GetEventLiveFunc func(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error)
}

func (f *fakeSnapshotter) GetEventLive(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error) {
	return f.GetEventLiveFunc(ctx, eventID)
}

func newMessage(topic, payload string) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), []byte(payload))
	if topic != "" {
		msg.Metadata.Set(eventbus.TopicMetadataKey, topic)
	}
	return msg
}

func TestFrameFromMessage(t *testing.T) {
	tests := []struct {
		name      string
		topic     string
		payload   string
		wantEvent sharedtypes.EventID
		wantErr   bool
	}{
		{name: "scope from topic", topic: "live.status.updated.v1.ufc-300", payload: `{"bout_id":"b1"}`, wantEvent: "ufc-300"},
		{name: "topic wins over payload", topic: "live.status.updated.v1.ufc-300", payload: `{"event_id":"other"}`, wantEvent: "ufc-300"},
		{name: "scope from payload", payload: `{"event_id":"ufc-301"}`, wantEvent: "ufc-301"},
		{name: "no scope", payload: `{"bout_id":"b1"}`, wantErr: true},
		{name: "not json", topic: "live.status.updated.v1.ufc-300", payload: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := FrameFromMessage(liveevents.StatusUpdatedV1, newMessage(tt.topic, tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, frame.EventID)
			assert.Equal(t, liveevents.StatusUpdatedV1, frame.Type)
			assert.JSONEq(t, tt.payload, string(frame.Payload))
		})
	}
}

func TestRelayHandler(t *testing.T) {
	b := &fakeBroadcaster{}
	relay := NewRelay(b, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
	handle := relay.Handler(liveevents.ScoringClosedV1)

	require.NoError(t, handle(newMessage("live.scoring.closed.v1.ufc-300", `{"bout_id":"b1","round":2}`)))
	require.NoError(t, handle(newMessage("", `{"bout_id":"b1"}`)), "unscoped messages are acked")

	require.Len(t, b.frames, 1)
	assert.Equal(t, sharedtypes.EventID("ufc-300"), b.frames[0].EventID)
	assert.Equal(t, liveevents.ScoringClosedV1, b.frames[0].Type)
}

func TestSnapshots(t *testing.T) {
	t.Run("without a snapshotter", func(t *testing.T) {
		frame, err := NewSnapshots(nil).Snapshot(context.Background(), "ufc-300")
		require.NoError(t, err)
		assert.Nil(t, frame)
	})

	t.Run("shapes the live aggregate", func(t *testing.T) {
		snaps := &fakeSnapshotter{GetEventLiveFunc: func(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error) {
			return &liveservice.EventLive{
				EventID:      eventID,
				Statuses:     []liveservice.LiveStatus{{EventID: eventID, BoutID: "b1", Phase: sharedtypes.PhaseRoundBreak, CurrentRound: 1, IsScoring: true}},
				PollInterval: 5 * time.Second,
			}, nil
		}}
		frame, err := NewSnapshots(snaps).Snapshot(context.Background(), "ufc-300")
		require.NoError(t, err)
		require.NotNil(t, frame)
		assert.Equal(t, SnapshotType, frame.Type)
		assert.Contains(t, string(frame.Payload), `"poll_interval_seconds":5`)
		assert.Contains(t, string(frame.Payload), `"bout_id":"b1"`)
	})

	t.Run("empty card", func(t *testing.T) {
		snaps := &fakeSnapshotter{GetEventLiveFunc: func(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error) {
			return &liveservice.EventLive{EventID: eventID}, nil
		}}
		frame, err := NewSnapshots(snaps).Snapshot(context.Background(), "ufc-300")
		require.NoError(t, err)
		assert.Contains(t, string(frame.Payload), `"statuses":[]`)
	})

	t.Run("unknown event", func(t *testing.T) {
		snaps := &fakeSnapshotter{GetEventLiveFunc: func(ctx context.Context, eventID sharedtypes.EventID) (*liveservice.EventLive, error) {
			return nil, eventdb.ErrNotFound
		}}
		_, err := NewSnapshots(snaps).Snapshot(context.Background(), "missing")
		assert.ErrorIs(t, err, sharedtypes.ErrNotFound)
	})
}

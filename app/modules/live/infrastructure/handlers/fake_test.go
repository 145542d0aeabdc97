package livehandlers

import (
	"context"

	liveservice "github.com/Black-And-White-Club/ringside/app/modules/live/application"
	livedomain "github.com/Black-And-White-Club/ringside/app/modules/live/domain"
	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
)

// FakeLiveService records the signals it receives.
type FakeLiveService struct {
	liveservice.Service
	signals []livedomain.Signal

	ApplySignalFunc func(ctx context.Context, boutID sharedtypes.BoutID, sig livedomain.Signal) (*liveservice.Transition, error)
}

func (f *FakeLiveService) Signals() []livedomain.Signal {
	out := make([]livedomain.Signal, len(f.signals))
	copy(out, f.signals)
	return out
}

func (f *FakeLiveService) ApplySignal(ctx context.Context, boutID sharedtypes.BoutID, sig livedomain.Signal) (*liveservice.Transition, error) {
	f.signals = append(f.signals, sig)
	if f.ApplySignalFunc != nil {
		return f.ApplySignalFunc(ctx, boutID, sig)
	}
	return &liveservice.Transition{}, nil
}

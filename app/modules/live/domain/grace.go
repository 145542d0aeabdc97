package livedomain

import (
	"sync"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ringside/pkg/types/shared"
	"github.com/jonboulle/clockwork"
)

// DefaultGracePeriod is how long a round's scoring window stays open.
const DefaultGracePeriod = 90 * time.Second

// ExpireFunc is called once when a window runs out on its own.
type ExpireFunc func(boutID sharedtypes.BoutID, round int)

// Window describes an open scoring window.
type Window struct {
	BoutID   sharedtypes.BoutID
	Round    int
	Deadline time.Time
}

// GraceRegistry keeps at most one scoring window per bout. Windows for
// different bouts share no lock. A window ends exactly once: either its
// timer fires and onExpire runs, or Close cancels it first and onExpire
// never runs.
type GraceRegistry struct {
	clock    clockwork.Clock
	onExpire ExpireFunc
	windows  sync.Map // sharedtypes.BoutID -> *graceEntry
}

type graceEntry struct {
	mu       sync.Mutex
	window   Window
	timer    clockwork.Timer
	finished bool
}

// NewGraceRegistry creates a registry. onExpire may be nil.
func NewGraceRegistry(clock clockwork.Clock, onExpire ExpireFunc) *GraceRegistry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GraceRegistry{clock: clock, onExpire: onExpire}
}

// Start opens a window for round that lasts d. Any window still open for
// the bout is cancelled without firing onExpire.
func (g *GraceRegistry) Start(boutID sharedtypes.BoutID, round int, d time.Duration) Window {
	return g.StartUntil(boutID, round, g.clock.Now().Add(d))
}

// StartUntil opens a window that closes at deadline. It is used to re-arm
// windows after a restart.
func (g *GraceRegistry) StartUntil(boutID sharedtypes.BoutID, round int, deadline time.Time) Window {
	e := &graceEntry{window: Window{BoutID: boutID, Round: round, Deadline: deadline}}

	e.mu.Lock()
	if old, loaded := g.windows.Swap(boutID, e); loaded {
		old.(*graceEntry).cancel()
	}
	e.timer = g.clock.AfterFunc(deadline.Sub(g.clock.Now()), func() { g.expire(e) })
	e.mu.Unlock()

	return e.window
}

func (g *GraceRegistry) expire(e *graceEntry) {
	e.mu.Lock()
	if e.finished {
		e.mu.Unlock()
		return
	}
	e.finished = true
	w := e.window
	e.mu.Unlock()

	g.windows.CompareAndDelete(w.BoutID, e)
	if g.onExpire != nil {
		g.onExpire(w.BoutID, w.Round)
	}
}

// cancel reports whether it was the one to finish the entry.
func (e *graceEntry) cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return false
	}
	e.finished = true
	if e.timer != nil {
		e.timer.Stop()
	}
	return true
}

// Close cancels the bout's open window. It returns the window and true
// when this call closed it, or false when there was nothing open or the
// timer had already won.
func (g *GraceRegistry) Close(boutID sharedtypes.BoutID) (Window, bool) {
	v, ok := g.windows.Load(boutID)
	if !ok {
		return Window{}, false
	}
	e := v.(*graceEntry)
	if !e.cancel() {
		return Window{}, false
	}
	g.windows.CompareAndDelete(boutID, e)
	return e.window, true
}

// Current returns the bout's open window, if any. A window past its
// deadline is reported closed even before its timer has fired.
func (g *GraceRegistry) Current(boutID sharedtypes.BoutID) (Window, bool) {
	v, ok := g.windows.Load(boutID)
	if !ok {
		return Window{}, false
	}
	e := v.(*graceEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished || !g.clock.Now().Before(e.window.Deadline) {
		return Window{}, false
	}
	return e.window, true
}

// IsOpen reports whether round's window is open for the bout.
func (g *GraceRegistry) IsOpen(boutID sharedtypes.BoutID, round int) bool {
	w, ok := g.Current(boutID)
	return ok && w.Round == round
}

// Remaining returns how long the bout's window has left.
func (g *GraceRegistry) Remaining(boutID sharedtypes.BoutID) (time.Duration, bool) {
	w, ok := g.Current(boutID)
	if !ok {
		return 0, false
	}
	return w.Deadline.Sub(g.clock.Now()), true
}

// CloseAll cancels every open window.
func (g *GraceRegistry) CloseAll() {
	g.windows.Range(func(key, _ any) bool {
		g.Close(key.(sharedtypes.BoutID))
		return true
	})
}

// internal/ratelimit/window.go
package ratelimit

import (
	"sync"
	"time"

	"github.com/jason-s-yu/songquiz/internal/clock"
)

// Window is a sliding-window counter: at most Max actions are accepted within any
// interval of length Span. Rejected attempts are not recorded.
type Window struct {
	mu     sync.Mutex
	clock  clock.Clock
	span   time.Duration
	max    int
	stamps []time.Time
}

// NewWindow builds a limiter accepting max actions per span.
func NewWindow(c clock.Clock, span time.Duration, max int) *Window {
	return &Window{
		clock:  c,
		span:   span,
		max:    max,
		stamps: make([]time.Time, 0, max),
	}
}

// Allow records an action and reports whether it fits in the window.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if now.Sub(ts) <= w.span {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Reset forgets all recorded actions.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stamps = w.stamps[:0]
}

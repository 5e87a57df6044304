package stream

import (
	"sync"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// Window is the bounded in-memory chat log for one session: most recent N
// events, oldest dropped.
type Window struct {
	mu     sync.RWMutex
	cap    int
	events []domain.ChatEvent
}

// NewWindow creates a window holding at most capacity events.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 200
	}
	return &Window{cap: capacity}
}

// Append adds an event, evicting the oldest when full.
func (w *Window) Append(e domain.ChatEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, e)
	if len(w.events) > w.cap {
		w.events = w.events[len(w.events)-w.cap:]
	}
}

// Events returns a copy of the window, oldest first.
func (w *Window) Events() []domain.ChatEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.ChatEvent, len(w.events))
	copy(out, w.events)
	return out
}

// Len returns the current number of events.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}

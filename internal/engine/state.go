package engine

import (
	"log/slog"
	"sync"
)

// State is the process-wide synchronization status.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateError   State = "error"
	StateOffline State = "offline"
)

// Tracker holds the current sync state and fans transitions out to
// observers. All mutations go through Set, which is the single choke point.
type Tracker struct {
	mu          sync.Mutex
	current     State
	subscribers map[int]func(State)
	nextID      int
	logger      *slog.Logger
}

// NewTracker creates a tracker starting in StateIdle.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		current:     StateIdle,
		subscribers: make(map[int]func(State)),
		logger:      logger,
	}
}

// Current returns the current state.
func (t *Tracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Set transitions to next and synchronously notifies every observer. Setting
// the current state again is a no-op with no notification. One observer
// panicking does not prevent the others from being notified.
func (t *Tracker) Set(next State) {
	t.mu.Lock()
	if t.current == next {
		t.mu.Unlock()
		return
	}
	prev := t.current
	t.current = next
	subs := make([]func(State), 0, len(t.subscribers))
	for _, cb := range t.subscribers {
		subs = append(subs, cb)
	}
	t.mu.Unlock()

	t.logger.Debug("sync state transition", "from", prev, "to", next)
	for _, cb := range subs {
		t.notify(cb, next)
	}
}

func (t *Tracker) notify(cb func(State), state State) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("sync state observer panicked", "state", state, "panic", r)
		}
	}()
	cb(state)
}

// Subscribe registers an observer. The observer immediately receives the
// current state once, then every future transition. The returned function
// unsubscribes in O(1) and is safe to call more than once.
func (t *Tracker) Subscribe(cb func(State)) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = cb
	current := t.current
	t.mu.Unlock()

	t.notify(cb, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subscribers, id)
		})
	}
}

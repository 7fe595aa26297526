// Package queue holds local edits that have not yet been confirmed against
// the remote store. The queue is durable: every mutation writes through to
// the local key-value store, and an in-memory mirror avoids re-reading it on
// every access.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/pockettune/radiosync/internal/kvstore"
	"github.com/pockettune/radiosync/internal/remote"
	"github.com/pockettune/radiosync/internal/station"
)

// DefaultKey is the key-value store key the queue persists under.
const DefaultKey = "pending_changes"

// PushFunc attempts one remote effect during a drain.
type PushFunc func(ctx context.Context, change station.PendingChange) error

// Queue is the durable pending-change queue. At most one entry exists per
// station id; Enqueue coalesces edits to keep that invariant.
type Queue struct {
	mu     sync.Mutex
	store  kvstore.Store
	key    string
	logger *slog.Logger

	// cached mirrors the persisted value; invalidated only by load.
	cached []station.PendingChange
	loaded bool
}

// New creates a queue persisting under key (DefaultKey if empty).
func New(store kvstore.Store, key string, logger *slog.Logger) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// load reads the persisted queue into the cache. Caller holds q.mu.
func (q *Queue) load() error {
	if q.loaded {
		return nil
	}

	value, ok, err := q.store.Get(q.key)
	if err != nil {
		return fmt.Errorf("failed to load pending changes: %w", err)
	}

	changes := make([]station.PendingChange, 0)
	if ok && value != "" {
		if err := json.Unmarshal([]byte(value), &changes); err != nil {
			// A corrupt queue cannot be replayed; start over rather than
			// blocking every future edit.
			q.logger.Error("discarding unreadable pending-change queue", "error", err)
			changes = changes[:0]
		}
	}

	q.cached = changes
	q.loaded = true
	return nil
}

// persist writes the cache through to the store. Caller holds q.mu.
func (q *Queue) persist() error {
	data, err := json.Marshal(q.cached)
	if err != nil {
		return fmt.Errorf("failed to encode pending changes: %w", err)
	}
	if err := q.store.Set(q.key, string(data)); err != nil {
		return fmt.Errorf("failed to persist pending changes: %w", err)
	}
	return nil
}

// Enqueue records a change, coalescing with any existing entry for the same
// station id:
//
//	add + delete    -> both removed; the station never reaches the remote
//	add + update    -> stays an add, carrying the update's payload
//	anything else   -> incoming change replaces the existing one
//
// Queue size is therefore bounded by distinct station ids, not edit count.
func (q *Queue) Enqueue(change station.PendingChange) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return err
	}

	idx := -1
	for i, existing := range q.cached {
		if existing.Station.ID == change.Station.ID {
			idx = i
			break
		}
	}

	if idx < 0 {
		q.cached = append(q.cached, change)
		return q.persist()
	}

	existing := q.cached[idx]
	switch {
	case existing.Type == station.ChangeAdd && change.Type == station.ChangeDelete:
		q.cached = append(q.cached[:idx], q.cached[idx+1:]...)
	case existing.Type == station.ChangeAdd && change.Type == station.ChangeUpdate:
		// Stays an add, but adopts the incoming change wholesale, id
		// included. A concurrent drain that already pushed the old snapshot
		// dequeues by the old id, so the coalesced entry must not keep it.
		change.Type = station.ChangeAdd
		q.cached[idx] = change
	default:
		q.cached[idx] = change
	}

	return q.persist()
}

// Dequeue removes the entry with the given change id, if present.
func (q *Queue) Dequeue(changeID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return err
	}

	for i, existing := range q.cached {
		if existing.ID == changeID {
			q.cached = append(q.cached[:i], q.cached[i+1:]...)
			return q.persist()
		}
	}
	return nil
}

// Drain processes queued changes in ascending timestamp order. A successful
// push removes its entry. A network-classified failure stops the drain
// immediately, leaving that entry and all later ones queued for the next
// attempt. Any other failure is logged and the entry is dropped so later
// changes still make progress.
func (q *Queue) Drain(ctx context.Context, push PushFunc) error {
	q.mu.Lock()
	if err := q.load(); err != nil {
		q.mu.Unlock()
		return err
	}
	pending := make([]station.PendingChange, len(q.cached))
	copy(pending, q.cached)
	q.mu.Unlock()

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Timestamp < pending[j].Timestamp
	})

	for _, change := range pending {
		err := push(ctx, change)
		if err == nil {
			if err := q.Dequeue(change.ID); err != nil {
				return err
			}
			continue
		}

		if remote.IsNetworkError(err) {
			return fmt.Errorf("drain halted on network failure: %w", err)
		}

		q.logger.Error("dropping pending change after push failure",
			"change_id", change.ID,
			"change_type", change.Type,
			"station_id", change.Station.ID,
			"error", err)
		if err := q.Dequeue(change.ID); err != nil {
			return err
		}
	}

	return nil
}

// List returns a copy of the queued changes in stored order.
func (q *Queue) List() ([]station.PendingChange, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return nil, err
	}

	out := make([]station.PendingChange, len(q.cached))
	copy(out, q.cached)
	return out, nil
}

// Clear removes every queued change.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return err
	}
	q.cached = q.cached[:0]
	return q.persist()
}

// HasAny reports whether any change is queued.
func (q *Queue) HasAny() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return false, err
	}
	return len(q.cached) > 0, nil
}

// Len returns the number of queued changes.
func (q *Queue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.load(); err != nil {
		return 0, err
	}
	return len(q.cached), nil
}

// Invalidate discards the in-memory mirror so the next operation re-reads
// the persisted value.
func (q *Queue) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loaded = false
	q.cached = nil
}

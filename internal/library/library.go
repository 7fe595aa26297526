// Package library owns the authoritative local station list. Mutations apply
// to local storage synchronously, then hand the corresponding change to the
// sync engine, which pushes it remotely or queues it for later.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pockettune/radiosync/internal/kvstore"
	"github.com/pockettune/radiosync/internal/station"
)

// DefaultKey is the key-value store key the station list persists under.
const DefaultKey = "stations"

// ChangePusher is the engine-side collaborator receiving each local edit.
type ChangePusher interface {
	PushChange(ctx context.Context, change station.PendingChange, userID string) error
}

// ErrNotFound is returned when a station id does not exist locally.
var ErrNotFound = fmt.Errorf("library: station not found")

// Library is the local station repository for one signed-in user.
type Library struct {
	mu     sync.Mutex
	store  kvstore.Store
	key    string
	logger *slog.Logger
	pusher ChangePusher
	userID string
}

// New creates a library persisting under key (DefaultKey if empty).
func New(store kvstore.Store, key string, pusher ChangePusher, userID string, logger *slog.Logger) *Library {
	if key == "" {
		key = DefaultKey
	}
	return &Library{
		store:  store,
		key:    key,
		logger: logger,
		pusher: pusher,
		userID: userID,
	}
}

// load reads the persisted list. Caller holds l.mu.
func (l *Library) load() ([]station.Station, error) {
	value, ok, err := l.store.Get(l.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	if !ok || value == "" {
		return []station.Station{}, nil
	}

	stations, err := station.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("stored station list is unreadable: %w", err)
	}
	return stations, nil
}

// save writes the list through to the store. Caller holds l.mu.
func (l *Library) save(stations []station.Station) error {
	if err := l.store.Set(l.key, station.Encode(stations)); err != nil {
		return fmt.Errorf("failed to persist stations: %w", err)
	}
	return nil
}

// List returns the current local station list.
func (l *Library) List() ([]station.Station, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Add creates a station with a fresh id, persists it, and pushes the add.
// The local write sticks even when the push fails; the returned error is the
// push outcome.
func (l *Library) Add(ctx context.Context, name, url string) (station.Station, error) {
	s := station.Station{
		ID:   uuid.New().String(),
		Name: name,
		URL:  url,
	}

	l.mu.Lock()
	stations, err := l.load()
	if err != nil {
		l.mu.Unlock()
		return station.Station{}, err
	}
	stations = append(stations, s)
	if err := l.save(stations); err != nil {
		l.mu.Unlock()
		return station.Station{}, err
	}
	l.mu.Unlock()

	return s, l.push(ctx, station.ChangeAdd, s)
}

// Update replaces the station with the same id, preserving it. Returns
// ErrNotFound when the id is unknown locally.
func (l *Library) Update(ctx context.Context, s station.Station) error {
	l.mu.Lock()
	stations, err := l.load()
	if err != nil {
		l.mu.Unlock()
		return err
	}

	found := false
	for i := range stations {
		if stations[i].ID == s.ID {
			stations[i] = s
			found = true
			break
		}
	}
	if !found {
		l.mu.Unlock()
		return ErrNotFound
	}

	if err := l.save(stations); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	return l.push(ctx, station.ChangeUpdate, s)
}

// Remove deletes the station by id.
func (l *Library) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	stations, err := l.load()
	if err != nil {
		l.mu.Unlock()
		return err
	}

	idx := -1
	for i := range stations {
		if stations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return ErrNotFound
	}

	removed := stations[idx]
	stations = append(stations[:idx], stations[idx+1:]...)
	if err := l.save(stations); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	return l.push(ctx, station.ChangeDelete, removed)
}

// Replace overwrites the whole local list. Used to store a sync pass's
// merged result; no change is pushed, the sync already reconciled remotely.
func (l *Library) Replace(stations []station.Station) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(stations)
}

func (l *Library) push(ctx context.Context, t station.ChangeType, s station.Station) error {
	change := station.NewPendingChange(t, s)
	if err := l.pusher.PushChange(ctx, change, l.userID); err != nil {
		l.logger.Error("failed to push local edit",
			"change_type", t, "station_id", s.ID, "error", err)
		return err
	}
	return nil
}

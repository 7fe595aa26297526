package library

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pockettune/radiosync/internal/station"
	"github.com/pockettune/radiosync/internal/testutil"
)

// recordingPusher captures pushed changes and can fail on demand.
type recordingPusher struct {
	mu      sync.Mutex
	changes []station.PendingChange
	err     error
}

func (p *recordingPusher) PushChange(_ context.Context, change station.PendingChange, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPusher) pushed() []station.PendingChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]station.PendingChange, len(p.changes))
	copy(out, p.changes)
	return out
}

func newTestLibrary(t *testing.T) (*Library, *testutil.MockKVStore, *recordingPusher) {
	t.Helper()
	store := testutil.NewMockKVStore()
	pusher := &recordingPusher{}
	logger := testutil.NewTestLogger()
	return New(store, "", pusher, "u1", logger.Logger()), store, pusher
}

// TestLibrary_EmptyList verifies a fresh library lists no stations.
func TestLibrary_EmptyList(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	stations, err := lib.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 0 {
		t.Errorf("expected empty list, got %+v", stations)
	}
}

// TestLibrary_AddPersistsAndPushes verifies the synchronous local write and
// the corresponding add change.
func TestLibrary_AddPersistsAndPushes(t *testing.T) {
	lib, _, pusher := newTestLibrary(t)

	s, err := lib.Add(context.Background(), "Jazz FM", "http://jazz.fm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == "" {
		t.Error("expected a generated station id")
	}

	stations, _ := lib.List()
	if len(stations) != 1 || stations[0] != s {
		t.Errorf("expected persisted station %+v, got %+v", s, stations)
	}

	pushed := pusher.pushed()
	if len(pushed) != 1 || pushed[0].Type != station.ChangeAdd || pushed[0].Station != s {
		t.Errorf("expected one add change, got %+v", pushed)
	}
}

// TestLibrary_AddSurvivesPushFailure verifies the local write sticks even
// when the push fails.
func TestLibrary_AddSurvivesPushFailure(t *testing.T) {
	lib, _, pusher := newTestLibrary(t)
	pusher.err = errors.New("remote rejected")

	_, err := lib.Add(context.Background(), "Jazz FM", "http://jazz.fm")
	if err == nil {
		t.Fatal("expected push error to surface")
	}

	stations, _ := lib.List()
	if len(stations) != 1 {
		t.Errorf("local write must survive a failed push, got %+v", stations)
	}
}

// TestLibrary_UpdateReplacesInPlace verifies id-preserving edits.
func TestLibrary_UpdateReplacesInPlace(t *testing.T) {
	lib, _, pusher := newTestLibrary(t)
	s, _ := lib.Add(context.Background(), "Jazz FM", "http://jazz.fm")

	s.Name = "Jazz 24/7"
	s.URL = "http://jazz.fm/live"
	if err := lib.Update(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stations, _ := lib.List()
	if len(stations) != 1 || stations[0] != s {
		t.Errorf("expected updated station, got %+v", stations)
	}

	pushed := pusher.pushed()
	if len(pushed) != 2 || pushed[1].Type != station.ChangeUpdate {
		t.Errorf("expected an update change, got %+v", pushed)
	}
}

// TestLibrary_UpdateUnknownID verifies ErrNotFound.
func TestLibrary_UpdateUnknownID(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	err := lib.Update(context.Background(), station.Station{ID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestLibrary_RemoveDeletesAndPushes verifies removal semantics.
func TestLibrary_RemoveDeletesAndPushes(t *testing.T) {
	lib, _, pusher := newTestLibrary(t)
	s, _ := lib.Add(context.Background(), "Jazz FM", "http://jazz.fm")

	if err := lib.Remove(context.Background(), s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stations, _ := lib.List()
	if len(stations) != 0 {
		t.Errorf("expected empty list after remove, got %+v", stations)
	}

	pushed := pusher.pushed()
	if len(pushed) != 2 || pushed[1].Type != station.ChangeDelete || pushed[1].Station.ID != s.ID {
		t.Errorf("expected a delete change for %s, got %+v", s.ID, pushed)
	}

	if err := lib.Remove(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for repeated remove, got %v", err)
	}
}

// TestLibrary_ReplaceDoesNotPush verifies storing a merge result is silent.
func TestLibrary_ReplaceDoesNotPush(t *testing.T) {
	lib, _, pusher := newTestLibrary(t)

	merged := []station.Station{
		{ID: "1", Name: "A", URL: "http://x.fm"},
		{ID: "2", Name: "B", URL: "http://y.fm"},
	}
	if err := lib.Replace(merged); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stations, _ := lib.List()
	if len(stations) != 2 {
		t.Errorf("expected replaced list, got %+v", stations)
	}
	if len(pusher.pushed()) != 0 {
		t.Error("Replace must not push changes")
	}
}

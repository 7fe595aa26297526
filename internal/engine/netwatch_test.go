package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pockettune/radiosync/internal/station"
)

// TestNetworkListener_DrainsQueueOnRestore verifies the disconnected-to-
// connected transition delivers queued changes and ends in synced.
func TestNetworkListener_DrainsQueueOnRestore(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetOnline(false)

	change := station.NewPendingChange(station.ChangeAdd, station.Station{ID: "q1", Name: "Q", URL: "http://q.fm"})
	require.NoError(t, f.engine.PushChange(context.Background(), change, "u1"))
	require.Equal(t, StateOffline, f.engine.State())

	stop := f.engine.StartNetworkListener("u1", nil)
	defer stop()

	f.monitor.SetOnline(true)

	pushed := f.remote.Pushed()
	require.Len(t, pushed, 1)
	assert.Equal(t, "q1", pushed[0].Station.ID)

	has, _ := f.queue.HasAny()
	assert.False(t, has)
	assert.Equal(t, StateSynced, f.engine.State())
}

// TestNetworkListener_InvokesResyncCallback verifies the optional full
// resync hook runs after a successful drain.
func TestNetworkListener_InvokesResyncCallback(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetOnline(false)

	change := station.NewPendingChange(station.ChangeAdd, station.Station{ID: "q1", Name: "Q", URL: "http://q.fm"})
	require.NoError(t, f.engine.PushChange(context.Background(), change, "u1"))

	resyncs := 0
	stop := f.engine.StartNetworkListener("u1", func(context.Context) { resyncs++ })
	defer stop()

	f.monitor.SetOnline(true)
	assert.Equal(t, 1, resyncs)
}

// TestNetworkListener_EmptyQueueClearsOffline verifies offline moves to idle
// on reconnect when nothing is pending.
func TestNetworkListener_EmptyQueueClearsOffline(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetOnline(false)

	stop := f.engine.StartNetworkListener("u1", nil)
	defer stop()

	// Disconnect first so the listener records offline.
	f.engine.states.Set(StateOffline)

	f.monitor.SetOnline(true)
	assert.Equal(t, StateIdle, f.engine.State())
}

// TestNetworkListener_FailedResyncKeepsErrorState verifies a resync that
// ends in error is not papered over with synced.
func TestNetworkListener_FailedResyncKeepsErrorState(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetOnline(false)

	change := station.NewPendingChange(station.ChangeAdd, station.Station{ID: "q1", Name: "Q", URL: "http://q.fm"})
	require.NoError(t, f.engine.PushChange(context.Background(), change, "u1"))

	stop := f.engine.StartNetworkListener("u1", func(ctx context.Context) {
		// The full pass after the drain hits a non-network failure.
		f.remote.SetDownloadError(errors.New("document schema rejected"))
		f.engine.SyncStations(ctx, nil, "u1")
	})
	defer stop()

	f.monitor.SetOnline(true)
	assert.Equal(t, StateError, f.engine.State())
}

// TestNetworkListener_OfflineBlipReturnsToIdle verifies that losing and
// regaining connectivity with nothing queued clears the offline indicator.
func TestNetworkListener_OfflineBlipReturnsToIdle(t *testing.T) {
	f := newFixture(t)

	result := f.engine.SyncStations(context.Background(), nil, "u1")
	require.True(t, result.Success)

	stop := f.engine.StartNetworkListener("u1", nil)
	defer stop()

	f.monitor.SetOnline(false)
	assert.Equal(t, StateOffline, f.engine.State())

	// Losing and regaining connectivity with nothing queued: offline clears
	// back to idle, not to a stale synced.
	f.monitor.SetOnline(true)
	assert.Equal(t, StateIdle, f.engine.State())
}

// TestNetworkListener_DisconnectSetsOffline verifies the connected-to-
// disconnected transition.
func TestNetworkListener_DisconnectSetsOffline(t *testing.T) {
	f := newFixture(t)

	stop := f.engine.StartNetworkListener("u1", nil)
	defer stop()

	f.monitor.SetOnline(false)
	assert.Equal(t, StateOffline, f.engine.State())
}

// TestNetworkListener_FailedDrainStaysOffline verifies a drain halted by
// another connectivity drop returns to offline with the queue intact.
func TestNetworkListener_FailedDrainStaysOffline(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetOnline(false)

	change := station.NewPendingChange(station.ChangeAdd, station.Station{ID: "q1", Name: "Q", URL: "http://q.fm"})
	require.NoError(t, f.engine.PushChange(context.Background(), change, "u1"))

	f.remote.SetPushError(netErr("push"))

	stop := f.engine.StartNetworkListener("u1", nil)
	defer stop()

	f.monitor.SetOnline(true)

	assert.Equal(t, StateOffline, f.engine.State())
	has, _ := f.queue.HasAny()
	assert.True(t, has, "queue must survive a failed post-reconnect drain")
}

// TestNetworkListener_StopTearsDownBinding verifies stop removes the
// subscription and is safe to call twice.
func TestNetworkListener_StopTearsDownBinding(t *testing.T) {
	f := newFixture(t)

	stop := f.engine.StartNetworkListener("u1", nil)
	require.Equal(t, 1, f.monitor.CountSubscribers())

	stop()
	stop()
	assert.Equal(t, 0, f.monitor.CountSubscribers())

	f.monitor.SetOnline(false)
	assert.NotEqual(t, StateOffline, f.engine.State(), "stopped listener must not react")
}

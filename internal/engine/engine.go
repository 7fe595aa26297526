// Package engine coordinates offline-first synchronization of the local
// station list with the remote document store: full reconciliation passes,
// optimistic single-change pushes with queue fallback, and connectivity-driven
// recovery.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pockettune/radiosync/internal/netmon"
	"github.com/pockettune/radiosync/internal/queue"
	"github.com/pockettune/radiosync/internal/remote"
	"github.com/pockettune/radiosync/internal/retry"
	"github.com/pockettune/radiosync/internal/station"
)

// Config defines engine retry behavior
type Config struct {
	// Total attempts per remote call, including the first.
	MaxAttempts int `toml:"max_attempts"`

	// Delay before the first retry; doubles per further retry.
	BaseDelay time.Duration `toml:"base_delay"`

	// Key the pending-change queue persists under.
	QueueKey string `toml:"queue_key"`
}

// DefaultConfig returns engine defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts: retry.DefaultAttempts,
		BaseDelay:   retry.DefaultBaseDelay,
		QueueKey:    queue.DefaultKey,
	}
}

// validateConfig validates engine configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.MaxAttempts <= 0 {
		return fmt.Errorf("MaxAttempts must be positive, got %d", config.MaxAttempts)
	}
	if config.BaseDelay <= 0 {
		return fmt.Errorf("BaseDelay must be positive, got %v", config.BaseDelay)
	}
	return nil
}

// Result reports the outcome of a full sync pass. Stations always carries a
// usable list: the merged result on success, the caller's local list on any
// failure, so nothing local is ever discarded.
type Result struct {
	Success  bool
	Err      string
	Stations []station.Station
}

// Engine is the per-session sync coordinator. Construct one per signed-in
// user and hand it to the UI layer; it owns the queue and the state tracker.
type Engine struct {
	config  Config
	logger  *slog.Logger
	remote  remote.Store
	queue   *queue.Queue
	monitor netmon.Monitor
	states  *Tracker

	// Full syncs must not interleave; see SyncStations.
	syncing atomic.Bool
}

// New creates an engine with the given collaborators.
func New(config Config, remoteStore remote.Store, q *queue.Queue, monitor netmon.Monitor, logger *slog.Logger) (*Engine, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return &Engine{
		config:  config,
		logger:  logger,
		remote:  remoteStore,
		queue:   q,
		monitor: monitor,
		states:  NewTracker(logger),
	}, nil
}

// State returns the current sync state.
func (e *Engine) State() State {
	return e.states.Current()
}

// OnStateChange registers a sync state observer; see Tracker.Subscribe.
func (e *Engine) OnStateChange(cb func(State)) (cancel func()) {
	return e.states.Subscribe(cb)
}

// IsOnline reports the connectivity monitor's current view.
func (e *Engine) IsOnline() bool {
	return e.monitor.Online()
}

// Queue exposes the pending-change queue accessors.
func (e *Engine) Queue() *queue.Queue {
	return e.queue
}

// Reset returns the state to idle. Called on sign-out.
func (e *Engine) Reset() {
	e.states.Set(StateIdle)
}

// pushOne applies a single change remotely through the retry executor.
func (e *Engine) pushOne(ctx context.Context, userID string, change station.PendingChange) error {
	return retry.Do(ctx, e.config.MaxAttempts, e.config.BaseDelay, func() error {
		return e.remote.PushOne(ctx, userID, change)
	})
}

// SyncStations runs a full reconciliation pass: drain the pending queue,
// download the remote list, merge, and upload when the local side contributes
// anything. A network-classified failure at any step ends in StateOffline
// with the local list preserved; any other failure ends in StateError. The
// pass never ends dangling in StateSyncing.
//
// Callers must not overlap full syncs for the same engine; an overlapping
// call fails fast without touching state.
func (e *Engine) SyncStations(ctx context.Context, local []station.Station, userID string) Result {
	if !e.syncing.CompareAndSwap(false, true) {
		return Result{Err: "sync already in progress", Stations: local}
	}
	defer e.syncing.Store(false)

	e.states.Set(StateSyncing)
	e.logger.Info("starting full sync", "user_id", userID, "local_count", len(local))

	// Queued offline edits go out first so the download reflects them.
	if err := e.queue.Drain(ctx, func(ctx context.Context, change station.PendingChange) error {
		return e.pushOne(ctx, userID, change)
	}); err != nil {
		return e.failSync(err, local, "drain pending changes")
	}

	cloud, err := retry.DoValue(ctx, e.config.MaxAttempts, e.config.BaseDelay, func() ([]station.Station, error) {
		return e.remote.DownloadAll(ctx, userID)
	})
	if err != nil {
		return e.failSync(err, local, "download remote stations")
	}

	var merged []station.Station
	switch {
	case len(local) == 0 && len(cloud) == 0:
		merged = []station.Station{}
	case len(cloud) == 0:
		// First sync from this device: the remote side is empty.
		merged = station.Merge(local, nil)
		if err := e.uploadAll(ctx, userID, merged); err != nil {
			return e.failSync(err, local, "upload local stations")
		}
	case len(local) == 0:
		// New device adopting the remote list; nothing to upload.
		merged = station.Merge(nil, cloud)
	default:
		merged = station.Merge(local, cloud)
		// Make the remote side reflect the deduplicated union; this also
		// self-heals duplicates from earlier syncs.
		if err := e.uploadAll(ctx, userID, merged); err != nil {
			return e.failSync(err, local, "upload merged stations")
		}
	}

	e.states.Set(StateSynced)
	e.logger.Info("full sync complete", "user_id", userID, "merged_count", len(merged))
	return Result{Success: true, Stations: merged}
}

func (e *Engine) uploadAll(ctx context.Context, userID string, stations []station.Station) error {
	return retry.Do(ctx, e.config.MaxAttempts, e.config.BaseDelay, func() error {
		return e.remote.UploadAll(ctx, userID, stations)
	})
}

// failSync classifies the failure, moves the state machine accordingly, and
// preserves the caller's local list.
func (e *Engine) failSync(err error, local []station.Station, step string) Result {
	if remote.IsNetworkError(err) {
		e.logger.Warn("sync interrupted by connectivity loss", "step", step, "error", err)
		e.states.Set(StateOffline)
	} else {
		e.logger.Error("sync failed", "step", step, "error", err)
		e.states.Set(StateError)
	}
	return Result{Err: fmt.Sprintf("%s: %v", step, err), Stations: local}
}

// PushChange applies one live edit remotely, bypassing the queue in the
// optimistic case. On a network-classified failure the change is enqueued
// for later and the state moves to offline; any other failure propagates to
// the caller.
func (e *Engine) PushChange(ctx context.Context, change station.PendingChange, userID string) error {
	if !e.monitor.Online() {
		e.logger.Debug("offline, queueing change",
			"change_type", change.Type, "station_id", change.Station.ID)
		if err := e.queue.Enqueue(change); err != nil {
			return err
		}
		e.states.Set(StateOffline)
		return nil
	}

	err := e.pushOne(ctx, userID, change)
	if err == nil {
		return nil
	}

	if remote.IsNetworkError(err) {
		e.logger.Warn("push failed on network error, queueing change",
			"change_type", change.Type, "station_id", change.Station.ID, "error", err)
		if qerr := e.queue.Enqueue(change); qerr != nil {
			return qerr
		}
		e.states.Set(StateOffline)
		return nil
	}

	return err
}

package engine

import (
	"context"

	"github.com/pockettune/radiosync/internal/station"
)

// ResyncFunc is invoked after a successful post-restoration queue drain,
// giving the caller a chance to run a full reconciliation pass.
type ResyncFunc func(ctx context.Context)

// StartNetworkListener binds the engine to the connectivity monitor for the
// given user. On a disconnected-to-connected transition it drains the queue
// and, when provided, invokes onRestored; on a transition to disconnected it
// moves the state to offline. Installed on sign-in; the returned stop
// function tears the binding down on sign-out or shutdown and is safe to
// call more than once.
func (e *Engine) StartNetworkListener(userID string, onRestored ResyncFunc) (stop func()) {
	return e.monitor.Subscribe(func(online bool) {
		if !online {
			e.logger.Info("connectivity lost", "user_id", userID)
			e.states.Set(StateOffline)
			return
		}
		e.onRestored(userID, onRestored)
	})
}

// onRestored handles a connected transition while a user is active.
func (e *Engine) onRestored(userID string, resync ResyncFunc) {
	ctx := context.Background()

	hasPending, err := e.queue.HasAny()
	if err != nil {
		e.logger.Error("failed to inspect pending queue after reconnect", "error", err)
		return
	}

	if !hasPending {
		// Nothing to deliver; leave a terminal state alone but clear a
		// stale offline indicator.
		if e.states.Current() == StateOffline {
			e.states.Set(StateIdle)
		}
		return
	}

	e.logger.Info("connectivity restored, draining pending changes", "user_id", userID)
	e.states.Set(StateSyncing)

	if err := e.queue.Drain(ctx, func(ctx context.Context, change station.PendingChange) error {
		return e.pushOne(ctx, userID, change)
	}); err != nil {
		e.logger.Warn("post-reconnect drain interrupted", "error", err)
		e.states.Set(StateOffline)
		return
	}

	if resync != nil {
		resync(ctx)
	}
	// The resync may itself have ended in error or offline; only mark synced
	// when no later transition has happened.
	if e.states.Current() == StateSyncing {
		e.states.Set(StateSynced)
	}
}

package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-core/contract"
	"chat-core/domain/event"
	"chat-core/observability"
)

// Compile-time check that the worker satisfies the supervisor's contract.
var _ contract.Worker = (*PresenceWorker)(nil)

// PresenceWorker broadcasts the online-user snapshot to every connection
// whenever the registry changes. Refresh signals arriving within the
// coalescing window collapse into one broadcast, so login storms do not
// turn into broadcast storms. Coalescing is a scalability allowance, not a
// correctness requirement: the snapshot is taken after the window closes,
// so the last state always wins.
type PresenceWorker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	refresh    <-chan struct{}
	window     time.Duration
	monitoring *observability.MonitoringManager
}

func NewPresenceWorker(
	log *slog.Logger,
	registry contract.IRegistry,
	refresh <-chan struct{},
	window time.Duration,
	monitoring *observability.MonitoringManager,
) *PresenceWorker {
	return &PresenceWorker{
		log:        log,
		registry:   registry,
		refresh:    refresh,
		window:     window,
		monitoring: monitoring,
	}
}

func (w *PresenceWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case _, ok := <-w.refresh:
			if !ok {
				return nil
			}
			w.coalesce(ctx)
			w.publish(ctx)
		}
	}
}

// coalesce swallows further refresh signals until the window elapses.
func (w *PresenceWorker) coalesce(ctx context.Context) {
	if w.window <= 0 {
		return
	}
	timer := time.NewTimer(w.window)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.refresh:
			// Absorbed into the pending broadcast
		case <-timer.C:
			return
		}
	}
}

// publish snapshots the online set and pushes user_list to every sink.
func (w *PresenceWorker) publish(ctx context.Context) {
	snapshot := event.UserList{Users: w.registry.OnlineIdentities()}
	for _, sink := range w.registry.AllSinks() {
		if err := sink.Consume(ctx, snapshot); err != nil {
			w.log.Debug("presence delivery failed", "error", err)
		}
	}
	w.monitoring.IncrPresenceBroadcasts()
	w.log.Debug("presence published", "online", len(snapshot.Users))
}

package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-core/contract"
	"chat-core/observability"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

type HeartbeatWorker struct {
	log        *slog.Logger
	interval   time.Duration
	monitoring *observability.MonitoringManager
}

func NewHeartbeatWorker(
	log *slog.Logger,
	interval time.Duration,
	monitoring *observability.MonitoringManager,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log,
		interval:   interval,
		monitoring: monitoring,
	}
}

// Run executes the main loop of the worker, logging health metrics (CPU, RAM, Status)
// and routing counters at each interval.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			stats := w.monitoring.GetLatest()
			w.log.Info("Heartbeat",
				"pid", os.Getpid(),
				"pid_status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"messages_routed", stats.MessagesRouted,
				"messages_persisted", stats.MessagesPersisted,
				"persistence_failures", stats.PersistenceFailures,
				"notifications_sent", stats.NotificationsSent,
				"notifications_dropped", stats.NotificationsDropped,
				"presence_broadcasts", stats.PresenceBroadcasts,
			)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}

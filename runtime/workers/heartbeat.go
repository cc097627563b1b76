package workers

import (
	"chat-relay/observability"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const heartbeatInterval = 5 * time.Second

// HeartbeatWorker samples process level metrics (RSS, CPU) and gateway
// gauges (live groups, subscriptions) and pushes them into the
// monitoring manager for the debug endpoint.
type HeartbeatWorker struct {
	log        *slog.Logger
	monitoring *observability.MonitoringManager
	registry   *runtime.Registry
}

func NewHeartbeatWorker(
	log *slog.Logger,
	monitoring *observability.MonitoringManager,
	registry *runtime.Registry,
) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:        log,
		monitoring: monitoring,
		registry:   registry,
	}
}

// Run executes the main loop of the worker, refreshing health metrics every 5 seconds.
func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(heartbeatInterval)
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
			rss, cpu, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.monitoring.UpdateProcess(rss, cpu)

			groups, subscriptions := w.registry.Stats()
			w.monitoring.UpdateGateway(subscriptions, groups)
		}
	}
}

// getSelfStats retrieves technical metrics (Memory and CPU) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}

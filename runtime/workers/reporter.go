package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"chatsapp/observability"
)

// Reporter periodically logs a metrics snapshot along with the server
// process's resident memory. Purely observational, never on the hot path.
type Reporter struct {
	monitor  *observability.Monitor
	interval time.Duration
	log      *slog.Logger
}

func NewReporter(monitor *observability.Monitor, interval time.Duration, log *slog.Logger) *Reporter {
	return &Reporter{monitor: monitor, interval: interval, log: log}
}

func (w *Reporter) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(proc)
			w.log.Info("Reporter stopped")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *Reporter) report(proc *process.Process) {
	stats := w.monitor.Snapshot()

	var rssMb uint64
	if mem, err := proc.MemoryInfo(); err == nil {
		rssMb = mem.RSS / 1024 / 1024
	}

	w.log.Info("Stats",
		"uptime", w.monitor.Uptime().Round(time.Second).String(),
		"rss_mb", rssMb,
		"connections", stats.ActiveConnections,
		"rooms_created", stats.RoomsCreated,
		"posted", stats.MessagesPosted,
		"delivered", stats.MessagesDelivered,
		"dropped", stats.MessagesDropped,
		"censored", stats.CensorHits,
	)
}

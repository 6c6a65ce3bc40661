package bridge

import (
	"context"
	"log/slog"
	"time"

	"rtsp2hls/internal/platform/metrics"
)

// Liveness is the probe the watchdog uses to check the supervised process.
// *Handle implements it.
type Liveness interface {
	IsAlive() (bool, error)
}

// Watchdog periodically samples the segment directory and reports a fatal
// Failure when the transcoder has died or has stopped producing new
// fragments. Progress is defined as set inequality between consecutive
// samples of the fragment filenames; a healthy live stream appends and
// evicts fragments continuously, so an unchanged set after a full grace
// period means the pipeline is frozen.
type Watchdog struct {
	dir     string
	period  time.Duration
	proc    Liveness
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewWatchdog returns a Watchdog that checks dir every period. Metrics may
// be nil to disable metric recording (e.g. in tests).
func NewWatchdog(dir string, period time.Duration, proc Liveness, log *slog.Logger, m *metrics.Metrics) *Watchdog {
	return &Watchdog{dir: dir, period: period, proc: proc, log: log, metrics: m}
}

// Run loops until it detects a fatal condition, which it reports on
// failures before returning, or until ctx is done. The previous snapshot is
// owned by this loop alone. The baseline starts empty, so a directory that
// still holds no fragments after the first full period compares equal and
// is reported as a stall right there.
func (w *Watchdog) Run(ctx context.Context, failures chan<- Failure) {
	prev := make(snapshot)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.period):
		}

		alive, err := w.proc.IsAlive()
		if err != nil || !alive {
			report(failures, Failure{Kind: FailureTranscoderExited, Err: err})
			return
		}

		snap, err := takeSnapshot(w.dir)
		if err != nil {
			report(failures, Failure{Kind: FailureHealthcheck, Err: err})
			return
		}

		if snap.equal(prev) {
			report(failures, Failure{Kind: FailureStalled})
			return
		}
		prev = snap

		w.log.Debug("watchdog check passed", slog.Int("fragments", len(snap)))
		if w.metrics != nil {
			w.metrics.IncWatchdogChecks()
		}
	}
}

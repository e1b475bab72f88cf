package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Runner drives the reconciler on a fixed interval.
type Runner struct {
	Logger     *zap.Logger
	Reconciler *Reconciler
	Interval   time.Duration
}

func NewRunner(logger *zap.Logger, rec *Reconciler, interval time.Duration) *Runner {
	if interval < 0 {
		interval = 0
	}
	return &Runner{Logger: logger, Reconciler: rec, Interval: interval}
}

// Run does an immediate cycle, then one per tick, until ctx is cancelled.
// A zero interval disables the runner.
func (r *Runner) Run(ctx context.Context) {
	if r.Interval == 0 {
		r.Logger.Info("runner_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("runner_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	_, err := r.Reconciler.RunCycle(ctx, Scope{})
	switch {
	case err == nil, errors.Is(err, ErrCycleRunning):
		// cycle_finished / cycle_skipped_locked already logged
	default:
		r.Logger.Warn("runner_cycle_error", zap.Error(err))
	}
}

// Package ticker provides an adapter that drives the worker from an internal
// timer, for deployments without an external scheduler hitting the tick
// endpoint.
package ticker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leadforge/automation/internal/service"
)

// Runner invokes worker ticks on a fixed interval.
type Runner struct {
	worker   *service.WorkerService
	interval time.Duration
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Worker   *service.WorkerService
	Interval time.Duration
	Logger   *slog.Logger
}

// NewRunner creates a new tick runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Worker == nil {
		return nil, errors.New("worker service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Runner{
		worker:   opts.Worker,
		interval: opts.Interval,
		logger:   opts.Logger.With("component", "tick_runner"),
	}, nil
}

// Run ticks the worker until the context is cancelled. A failed tick is
// logged and the loop continues; transient store trouble must not kill the
// process.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("internal tick loop started", "interval", r.interval)
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("internal tick loop stopped")
			return nil
		case <-t.C:
			if _, err := r.worker.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("tick failed", "error", err)
			}
		}
	}
}

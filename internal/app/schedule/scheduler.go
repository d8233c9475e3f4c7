// Package schedule issues commands on fixed intervals.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"stayride/internal/app/commands"
)

var ErrNoBus = errors.New("schedule: command bus required")

// Job produces the command dispatched on every tick.
type Job struct {
	Name    string
	Every   time.Duration
	Command func() commands.Command
}

type Runner struct {
	Bus    commands.Bus
	Jobs   []Job
	Logger *slog.Logger
}

// Run ticks every job until ctx is done. A failed dispatch is logged and the
// job keeps its schedule.
func (r *Runner) Run(ctx context.Context) error {
	if r.Bus == nil {
		return ErrNoBus
	}
	var wg sync.WaitGroup
	for _, job := range r.Jobs {
		if job.Every <= 0 || job.Command == nil {
			r.logger().Warn("schedule job skipped", "job", job.Name)
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			ticker := time.NewTicker(job.Every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.RunOnce(ctx, job)
				}
			}
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

// RunOnce dispatches the job's command a single time.
func (r *Runner) RunOnce(ctx context.Context, job Job) {
	res, err := r.Bus.Dispatch(ctx, job.Command())
	if err != nil {
		if ctx.Err() == nil {
			r.logger().ErrorContext(ctx, "schedule job failed", "job", job.Name, "error", err)
		}
		return
	}
	r.logger().DebugContext(ctx, "schedule job done", "job", job.Name, "result", res)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

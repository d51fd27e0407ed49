// FILE: lixenwraith/tunable/task/runner.go
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lixenwraith/tunable"
)

// Runner runs the tasks of an iterator in order, configuring each task's
// tunables from a value map first.
type Runner struct {
	mutator *tunable.Mutator
	logger  *slog.Logger
}

// NewRunner creates a Runner. A nil logger uses slog.Default().
func NewRunner(m *tunable.Mutator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{mutator: m, logger: logger}
}

// Execute creates the factory's tasks and runs them.
func (r *Runner) Execute(ctx context.Context, f Factory, values map[string]any) error {
	if !f.IsReady() {
		return fmt.Errorf("%w: %T", ErrNotReady, f)
	}

	it, err := f.CreateTaskIterator()
	if err != nil {
		return fmt.Errorf("failed to create tasks for %T: %w", f, err)
	}
	return r.Run(ctx, it, values)
}

// Run stops at the first failing task or when ctx is done.
// Each task's cached handlers are released once it has run.
func (r *Runner) Run(ctx context.Context, it *Iterator, values map[string]any) error {
	interceptor := r.mutator.Interceptor()

	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, err := it.Next()
		if err != nil {
			return err
		}

		name := fmt.Sprintf("%T", t)
		if interceptor.HasTunables(t) {
			if err := r.mutator.Apply(t, values); err != nil {
				interceptor.Release(t)
				return fmt.Errorf("failed to configure task %s: %w", name, err)
			}
			if title, ok, err := interceptor.Title(t); err == nil && ok {
				name = title
			}
		}

		start := time.Now()
		r.logger.Info("running task", "task", name)
		err = t.Run(ctx)
		interceptor.Release(t)
		if err != nil {
			r.logger.Error("task failed", "task", name, "error", err)
			return fmt.Errorf("task %s failed: %w", name, err)
		}
		r.logger.Debug("task finished", "task", name, "duration", time.Since(start))
	}

	return nil
}

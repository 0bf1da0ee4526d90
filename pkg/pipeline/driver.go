package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/observability"
)

// Driver runs an ordered list of stages.
type Driver struct {
	stages []Stage
	root   cache.Root
}

// NewDriver creates a Driver whose stage caches live under root.
func NewDriver(root cache.Root, stages ...Stage) *Driver {
	return &Driver{stages: stages, root: root}
}

// Stages returns the stages in execution order.
func (d *Driver) Stages() []Stage {
	return d.stages
}

// Run executes steps start through end, both 1-based and inclusive.
// Without resume every stage starts from an empty cache. A failed or
// interrupted stage keeps its cache so a resumed run can continue it.
func (d *Driver) Run(ctx context.Context, pc *Context, start, end int, resume bool) error {
	if start < 1 || end < start || end > len(d.stages) {
		return api.NewSystemicError(fmt.Sprintf(
			"invalid step range %d..%d (valid steps are 1..%d)", start, end, len(d.stages)))
	}

	runStart := time.Now()
	for step := start; step <= end; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.runStage(ctx, pc, step, resume); err != nil {
			return err
		}
	}
	slog.Info("pipeline finished",
		"run_id", pc.RunID,
		"steps", fmt.Sprintf("%d..%d", start, end),
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	return nil
}

func (d *Driver) runStage(ctx context.Context, pc *Context, step int, resume bool) error {
	st := d.stages[step-1]
	name := st.Name()

	if !resume {
		if err := d.root.Purge(step); err != nil {
			return err
		}
	}
	c, err := d.root.Open(step)
	if err != nil {
		return fmt.Errorf("stage %d (%s): opening cache: %w", step, name, err)
	}

	pc.Step = step
	pc.Started = time.Now()
	pc.Cache = c

	attrs := []any{"run_id", pc.RunID, "step", step, "stage", name}
	if n, err := c.Len(); err == nil && n > 0 {
		slog.Info("resuming stage", append(attrs, "cached", n)...)
	} else {
		slog.Info("stage started", attrs...)
	}

	var closeErr error
	runErr := func() error {
		// Close flushes buffered results even when the stage panics.
		defer func() {
			closeErr = c.Close()
			pc.Cache = nil
		}()
		return st.Run(ctx, pc)
	}()
	elapsed := time.Since(pc.Started)

	if err := errors.Join(runErr, closeErr); err != nil {
		observability.StageDuration.WithLabelValues(name, "error").Observe(elapsed.Seconds())
		slog.Error("stage failed", append(attrs, "elapsed", elapsed.Round(time.Millisecond), "error", err)...)
		return fmt.Errorf("stage %d (%s): %w", step, name, err)
	}

	if err := d.root.Purge(step); err != nil {
		return err
	}
	observability.StageDuration.WithLabelValues(name, "ok").Observe(elapsed.Seconds())
	slog.Info("stage finished", append(attrs, "elapsed", elapsed.Round(time.Millisecond))...)
	return nil
}

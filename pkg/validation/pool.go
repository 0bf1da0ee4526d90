package validation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/autoif/pkg/api"
)

// PoolConfig sizes a Fanout.
type PoolConfig struct {
	// Label names the work in progress logs.
	Label string

	// Workers is the number of concurrent workers.
	Workers int

	// ChunkFactor times Workers is the number of items submitted at once.
	ChunkFactor int

	// ProgressInterval is how often progress is logged. Zero disables it.
	ProgressInterval time.Duration
}

// Fanout applies fn to every item on a pool of Workers goroutines. Items
// are submitted in chunks of Workers*ChunkFactor. Results fn marks as kept
// are returned in completion order. The first error from fn stops the run
// and is returned with the results collected so far.
func Fanout[T, R any](ctx context.Context, cfg PoolConfig, items []T, fn func(context.Context, T) (R, bool, error)) ([]R, error) {
	workers := max(cfg.Workers, 1)
	chunk := workers * max(cfg.ChunkFactor, 1)

	var (
		mu   sync.Mutex
		out  []R
		done atomic.Int64
	)
	stop := logProgress(cfg, &done, len(items))
	defer stop()

	for start := 0; start < len(items); start += chunk {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		end := min(start+chunk, len(items))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, item := range items[start:end] {
			g.Go(func() error {
				r, keep, err := fn(gctx, item)
				done.Add(1)
				if err != nil {
					return err
				}
				if keep {
					mu.Lock()
					out = append(out, r)
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func logProgress(cfg PoolConfig, done *atomic.Int64, total int) (stop func()) {
	if cfg.ProgressInterval <= 0 {
		return func() {}
	}
	quit := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				slog.Info("validation progress", "work", cfg.Label, "done", done.Load(), "total", total)
			}
		}
	}()
	return func() { close(quit) }
}

// ValidateAll validates bundles on a worker pool and returns the accepted
// ones in completion order. Bundles below the density thresholds are
// dropped without error.
func (e *Engine) ValidateAll(ctx context.Context, pool PoolConfig, bundles []*api.Bundle) ([]*api.Bundle, error) {
	start := time.Now()
	accepted, err := Fanout(ctx, pool, bundles, func(ctx context.Context, b *api.Bundle) (*api.Bundle, bool, error) {
		out, err := e.Validate(ctx, b)
		switch {
		case err == nil:
			return out, true, nil
		case api.IsKind(err, api.ErrorKindLowDensity):
			return nil, false, nil
		default:
			return nil, false, err
		}
	})
	slog.Info("cross validation finished",
		"bundles", len(bundles),
		"accepted", len(accepted),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return accepted, err
}

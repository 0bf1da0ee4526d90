package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
	"github.com/rhuss/autoif/pkg/provider"
)

// Handler turns the completions of one item into a result. Returning a
// nil result marks the item complete without caching anything. Returning
// an error drops the item for this run.
type Handler[T any] func(ctx context.Context, item api.WorkItem, completions []string) (*T, error)

// Config controls dispatch.
type Config struct {
	// Stage labels log lines and metrics.
	Stage string

	// Concurrency is the maximum number of in-flight requests.
	Concurrency int

	// RequestsPerSecond paces dispatch. Zero means unlimited.
	RequestsPerSecond float64

	// ProgressInterval is how often progress is logged. Zero disables it.
	ProgressInterval time.Duration
}

// Scheduler dispatches work items for one stage.
type Scheduler[T any] struct {
	provider provider.Provider
	cache    *cache.Cache
	model    string
	cfg      Config
	limiter  *rate.Limiter
}

// New creates a Scheduler that generates with model on p and records
// results in c.
func New[T any](p provider.Provider, c *cache.Cache, model string, cfg Config) *Scheduler[T] {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	s := &Scheduler[T]{
		provider: p,
		cache:    c,
		model:    model,
		cfg:      cfg,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// progress counts item outcomes for one Run.
type progress struct {
	total     int
	cached    atomic.Int64
	completed atomic.Int64
	empty     atomic.Int64
	dropped   atomic.Int64
}

func (p *progress) done() int64 {
	return p.cached.Load() + p.completed.Load() + p.empty.Load() + p.dropped.Load()
}

// Run processes items and returns the results keyed by ordinal, including
// results served from the cache. Run returns once every item is a cache
// hit, processed, or dropped. If ctx is cancelled, dispatch stops, in-flight
// requests are awaited and the partial results are returned with ctx's error.
func (s *Scheduler[T]) Run(ctx context.Context, items []api.WorkItem, handler Handler[T], params api.SamplingParams) (map[int]T, error) {
	if err := checkOrdinals(items); err != nil {
		return nil, err
	}
	if err := s.checkFingerprint(items, params); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results = make(map[int]T, len(items))
		wg      sync.WaitGroup
		sem     = semaphore.NewWeighted(int64(s.cfg.Concurrency))
		prog    = &progress{total: len(items)}
	)

	stopProgress := s.reportProgress(prog)
	defer stopProgress()

	start := time.Now()
	var dispatchErr error

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}

		hit, err := s.cache.Contains(item.Ordinal)
		if err != nil {
			dispatchErr = err
			break
		}
		if hit {
			var v T
			if err := s.cache.Get(item.Ordinal, &v); err != nil {
				dispatchErr = err
				break
			}
			mu.Lock()
			results[item.Ordinal] = v
			mu.Unlock()
			prog.cached.Add(1)
			observability.SchedulerItemsTotal.WithLabelValues(s.cfg.Stage, "cached").Inc()
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				sem.Release(1)
				dispatchErr = err
				break
			}
		}

		wg.Add(1)
		observability.SchedulerInFlight.Inc()
		go func(item api.WorkItem) {
			defer wg.Done()
			defer sem.Release(1)
			defer observability.SchedulerInFlight.Dec()

			v, outcome := s.process(ctx, item, handler, params)
			switch outcome {
			case "completed":
				mu.Lock()
				results[item.Ordinal] = *v
				mu.Unlock()
				prog.completed.Add(1)
			case "empty":
				prog.empty.Add(1)
			default:
				prog.dropped.Add(1)
			}
			observability.SchedulerItemsTotal.WithLabelValues(s.cfg.Stage, outcome).Inc()
		}(item)
	}

	wg.Wait()

	slog.Info("stage dispatch finished",
		"stage", s.cfg.Stage,
		"total", prog.total,
		"cached", prog.cached.Load(),
		"completed", prog.completed.Load(),
		"empty", prog.empty.Load(),
		"dropped", prog.dropped.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if dispatchErr != nil {
		return results, dispatchErr
	}
	return results, nil
}

// process generates and handles one item. The outcome is one of
// "completed", "empty" or "dropped".
func (s *Scheduler[T]) process(ctx context.Context, item api.WorkItem, handler Handler[T], params api.SamplingParams) (*T, string) {
	debug.Log("scheduler", "dispatch", "stage", s.cfg.Stage, "ordinal", item.Ordinal)

	resp, err := s.provider.Generate(ctx, &provider.Request{
		Model:    s.model,
		Messages: item.Messages,
		Params:   params,
	})
	if err != nil {
		slog.Warn("generation failed, dropping item",
			"stage", s.cfg.Stage, "ordinal", item.Ordinal, "error", err)
		return nil, "dropped"
	}

	v, err := handler(ctx, item, resp.Completions)
	if err != nil {
		slog.Warn("result handler failed, dropping item",
			"stage", s.cfg.Stage, "ordinal", item.Ordinal, "error", err)
		return nil, "dropped"
	}
	if v == nil {
		debug.Log("scheduler", "empty result", "stage", s.cfg.Stage, "ordinal", item.Ordinal)
		return nil, "empty"
	}

	if err := s.cache.BufferedUpdate(item.Ordinal, v); err != nil {
		slog.Warn("caching result failed, dropping item",
			"stage", s.cfg.Stage, "ordinal", item.Ordinal, "error", err)
		return nil, "dropped"
	}
	return v, "completed"
}

// checkFingerprint records the input fingerprint on a fresh cache and
// rejects a cache built from different inputs.
func (s *Scheduler[T]) checkFingerprint(items []api.WorkItem, params api.SamplingParams) error {
	fp := Fingerprint(items, params)
	stored, ok, err := s.cache.Fingerprint()
	if err != nil {
		return err
	}
	if !ok {
		return s.cache.SetFingerprint(fp)
	}
	if stored != fp {
		return api.NewSystemicError(fmt.Sprintf(
			"stage %s cache was built from different inputs (fingerprint %016x, want %016x); purge it or run without resume",
			s.cfg.Stage, stored, fp))
	}
	return nil
}

func (s *Scheduler[T]) reportProgress(prog *progress) (stop func()) {
	if s.cfg.ProgressInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				slog.Info("stage progress",
					"stage", s.cfg.Stage,
					"done", prog.done(),
					"total", prog.total,
					"dropped", prog.dropped.Load(),
				)
			}
		}
	}()
	return func() { close(done) }
}

// checkOrdinals rejects duplicate ordinals, which would alias cache keys.
func checkOrdinals(items []api.WorkItem) error {
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.Ordinal]; dup {
			return api.NewSystemicError(fmt.Sprintf("duplicate work item ordinal %d", it.Ordinal))
		}
		seen[it.Ordinal] = struct{}{}
	}
	return nil
}

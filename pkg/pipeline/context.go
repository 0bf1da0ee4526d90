package pipeline

import (
	"context"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/scheduler"
	"github.com/rhuss/autoif/pkg/storage"
	"github.com/rhuss/autoif/pkg/validation"
)

// Stage is one step of the pipeline.
type Stage interface {
	// Name identifies the stage in logs, metrics and output names.
	Name() string

	// Run executes the stage. It may be interrupted and re-run against the
	// same Context.Cache.
	Run(ctx context.Context, pc *Context) error
}

// Context carries the state of one run into each stage.
type Context struct {
	// RunID correlates the log lines of one invocation.
	RunID string

	// Step is the 1-based position of the running stage.
	Step int

	// Started is when the running stage began.
	Started time.Time

	// Cache is the running stage's resumable cache. The Driver opens it
	// before Run and closes it afterwards.
	Cache *cache.Cache

	Config   *config.Config
	Provider provider.Provider
	Model    string
	Store    storage.RecordStore
	Sandbox  Sandbox
}

// Sandbox runs verifier functions. *sandbox.Executor implements it.
type Sandbox interface {
	validation.Executor

	// Compile reports PASS when code loads and defines evaluate.
	Compile(ctx context.Context, code string) api.Verdict
}

// SchedulerConfig returns the dispatch settings for the running stage.
func (pc *Context) SchedulerConfig(stage string) scheduler.Config {
	return scheduler.Config{
		Stage:             stage,
		Concurrency:       pc.Config.Scheduler.Concurrency,
		RequestsPerSecond: pc.Config.Scheduler.RequestsPerSecond,
		ProgressInterval:  pc.Config.Scheduler.ProgressInterval,
	}
}

// PoolConfig returns the worker pool settings for CPU-bound work.
func (pc *Context) PoolConfig(label string) validation.PoolConfig {
	return validation.PoolConfig{
		Label:            label,
		Workers:          pc.Config.Validation.Workers,
		ChunkFactor:      pc.Config.Validation.ChunkFactor,
		ProgressInterval: pc.Config.Scheduler.ProgressInterval,
	}
}

// Thresholds returns the cross-validation acceptance thresholds.
func (pc *Context) Thresholds() validation.Config {
	return validation.Config{
		MinScore:     pc.Config.Validation.MinScore,
		MinFunctions: pc.Config.Validation.MinFunctions,
		MinCases:     pc.Config.Validation.MinCases,
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/cache"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/pipeline/stages"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/sandbox"
)

var (
	startStep int
	endStep   int
	resume    bool
	model     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pipeline steps start through end",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().IntVar(&startStep, "start-step", 0, "First step to run (1-8)")
	runCmd.Flags().IntVar(&endStep, "end-step", 0, "Last step to run (1-8)")
	runCmd.Flags().BoolVar(&resume, "resume", false, "Continue in-progress stages from their cache")
	runCmd.Flags().StringVar(&model, "model", "", "Model to generate with (default: first listed)")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("start-step") {
		cfg.Pipeline.StartStep = startStep
	}
	if flags.Changed("end-step") {
		cfg.Pipeline.EndStep = endStep
	}
	if flags.Changed("resume") {
		cfg.Pipeline.Resume = resume
	}
	if flags.Changed("model") {
		cfg.Engine.Model = model
	}
	if err := cfg.Validate(); err != nil {
		return api.NewSystemicError(fmt.Sprintf("invalid configuration: %v", err))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := api.NewRunID()
	slog.Info("run starting",
		"run_id", runID,
		"steps", fmt.Sprintf("%d..%d", cfg.Pipeline.StartStep, cfg.Pipeline.EndStep),
		"resume", cfg.Pipeline.Resume,
		"sandbox", cfg.Sandbox.Runtime,
		"storage", cfg.Storage.Type,
	)

	if cfg.Observability.Metrics.Enabled {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		done, err := observability.Serve(metricsCtx, cfg.Observability.Metrics.Addr)
		if err != nil {
			stopMetrics()
			return fmt.Errorf("starting metrics endpoint: %w", err)
		}
		defer func() {
			stopMetrics()
			<-done
		}()
	}

	prov, err := newProvider(cfg.Engine)
	if err != nil {
		return err
	}
	defer prov.Close()

	modelID, err := provider.ResolveModel(ctx, prov, cfg.Engine.Model)
	if err != nil {
		return err
	}

	rt, err := sandbox.NewRuntime(cfg.Sandbox)
	if err != nil {
		return fmt.Errorf("creating sandbox: %w", err)
	}
	if remote, ok := rt.(*sandbox.Remote); ok {
		health, err := remote.Health(ctx)
		if err != nil {
			rt.Close()
			return api.NewSystemicError(fmt.Sprintf("sandbox server %s is not healthy: %v", cfg.Sandbox.RemoteURL, err))
		}
		slog.Info("sandbox server reachable", "url", cfg.Sandbox.RemoteURL, "health", health)
	}
	executor := sandbox.NewExecutor(rt, cfg.Sandbox.Timeout)
	defer executor.Close()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer store.Close()

	root := cache.Root{
		Dir:           cfg.Pipeline.CacheDir,
		FlushInterval: cfg.Scheduler.FlushInterval,
	}
	if debug.Enabled("cache") {
		root.Logger = slog.Default()
	}

	pc := &pipeline.Context{
		RunID:    runID,
		Config:   cfg,
		Provider: prov,
		Model:    modelID,
		Store:    store,
		Sandbox:  executor,
	}
	driver := pipeline.NewDriver(root, stages.All()...)
	return driver.Run(ctx, pc, cfg.Pipeline.StartStep, cfg.Pipeline.EndStep, cfg.Pipeline.Resume)
}

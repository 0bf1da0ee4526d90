// Command sandbox-server evaluates verifier functions over HTTP for
// pipelines whose sandbox runtime is "remote".
//
// Configuration:
//
//	SANDBOX_PORT           - Listen port (default: 8080)
//	SANDBOX_RUNTIME        - Runtime: python or starlark (default: python)
//	SANDBOX_PYTHON         - Python interpreter (default: python3)
//	SANDBOX_MAX_CONCURRENT - Max concurrent evaluations (default: 16)
//	SANDBOX_MEMORY_LIMIT_MB - Address space limit per evaluation (default: 512)
//	SANDBOX_DEFAULT_TIMEOUT - Timeout when a request sets none (default: 3s)
//	SANDBOX_MAX_TIMEOUT    - Upper bound on requested timeouts (default: 30s)
//	SANDBOX_METRICS        - Expose /metrics (default: true)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/sandbox"
)

func main() {
	// The starlark runtime re-executes this binary as its child.
	if len(os.Args) > 1 && os.Args[1] == sandbox.ChildCommand {
		if err := sandbox.ServeChild(os.Stdin, os.Stdout); err != nil {
			os.Exit(1)
		}
		return
	}

	debug.Init("", "INFO", envOr("SANDBOX_LOG_FORMAT", "text"))
	if err := run(); err != nil {
		slog.Error("sandbox server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	port := envOr("SANDBOX_PORT", "8080")
	cfg := config.SandboxConfig{
		Runtime:       envOr("SANDBOX_RUNTIME", "python"),
		Python:        envOr("SANDBOX_PYTHON", "python3"),
		MemoryLimitMB: envOrInt("SANDBOX_MEMORY_LIMIT_MB", 512),
		Timeout:       envOrDuration("SANDBOX_DEFAULT_TIMEOUT", 3*time.Second),
	}
	if cfg.Runtime == "remote" {
		return errors.New("SANDBOX_RUNTIME must be python or starlark")
	}

	rt, err := sandbox.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := newServer(rt, serverConfig{
		maxConcurrent:  envOrInt("SANDBOX_MAX_CONCURRENT", 16),
		defaultTimeout: cfg.Timeout,
		maxTimeout:     envOrDuration("SANDBOX_MAX_TIMEOUT", 30*time.Second),
		runtimeVersion: detectRuntimeVersion(cfg),
	})

	handler := srv.routes(envOr("SANDBOX_METRICS", "true") == "true")
	httpSrv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      srv.cfg.maxTimeout + 10*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sandbox server starting",
			"port", port,
			"runtime", rt.Name(),
			"version", srv.cfg.runtimeVersion,
			"max_concurrent", srv.cfg.maxConcurrent,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// detectRuntimeVersion returns the interpreter version line, or the
// runtime name when there is no interpreter to ask.
func detectRuntimeVersion(cfg config.SandboxConfig) string {
	if cfg.Runtime != "python" {
		return cfg.Runtime
	}
	output, err := exec.Command(cfg.Python, "--version").Output()
	if err != nil {
		return "unknown"
	}
	version, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return version
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return n
}

func envOrDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return d
}

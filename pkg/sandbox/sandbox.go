package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/config"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
)

// DefaultMaxSteps bounds Starlark execution when no limit is configured.
const DefaultMaxSteps = 50_000_000

// Runtime executes one request in a fresh child process. Exec must honour
// ctx's deadline and report StatusTimeout when it expires. Implementations
// are safe for concurrent use.
type Runtime interface {
	Name() string
	Exec(ctx context.Context, req Request) Reply
	Close() error
}

// Executor applies the denylist and a per-call deadline in front of a
// Runtime and maps replies to verdicts. It holds no mutable state, so one
// Executor may be shared by any number of goroutines.
type Executor struct {
	runtime  Runtime
	timeout  time.Duration
	maxSteps uint64
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxSteps overrides the Starlark step limit sent with every request.
func WithMaxSteps(n uint64) Option {
	return func(e *Executor) { e.maxSteps = n }
}

// NewExecutor creates an Executor that gives each call timeout to finish.
func NewExecutor(rt Runtime, timeout time.Duration, opts ...Option) *Executor {
	e := &Executor{runtime: rt, timeout: timeout, maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New builds the runtime selected by cfg and wraps it in an Executor.
func New(cfg config.SandboxConfig) (*Executor, error) {
	rt, err := NewRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewExecutor(rt, cfg.Timeout), nil
}

// NewRuntime builds the runtime selected by cfg.
func NewRuntime(cfg config.SandboxConfig) (Runtime, error) {
	switch cfg.Runtime {
	case "", "python":
		return NewPython(PythonConfig{
			Interpreter:   cfg.Python,
			MemoryLimitMB: cfg.MemoryLimitMB,
			Timeout:       cfg.Timeout,
		})
	case "starlark":
		return NewStarlark(StarlarkConfig{
			MemoryLimitMB: cfg.MemoryLimitMB,
			Timeout:       cfg.Timeout,
		})
	case "remote":
		return NewRemote(cfg.RemoteURL), nil
	default:
		return nil, fmt.Errorf("unknown sandbox runtime %q", cfg.Runtime)
	}
}

// Runtime returns the name of the underlying runtime.
func (e *Executor) Runtime() string {
	return e.runtime.Name()
}

// Close releases the runtime.
func (e *Executor) Close() error {
	return e.runtime.Close()
}

// Check runs evaluate(input) and returns PASS when the result equals
// expected and FAIL otherwise.
func (e *Executor) Check(ctx context.Context, code, input string, expected bool) api.Verdict {
	return e.run(ctx, Request{Code: code, Input: input}, func(v bool) bool { return v == expected })
}

// Evaluate runs evaluate(input) and returns PASS for true and FAIL for
// false.
func (e *Executor) Evaluate(ctx context.Context, code, input string) api.Verdict {
	return e.run(ctx, Request{Code: code, Input: input}, func(v bool) bool { return v })
}

// Compile loads code without calling it. It returns PASS when the code
// defines an evaluate function.
func (e *Executor) Compile(ctx context.Context, code string) api.Verdict {
	return e.run(ctx, Request{Code: code, CompileOnly: true}, func(v bool) bool { return v })
}

func (e *Executor) run(ctx context.Context, req Request, pass func(bool) bool) api.Verdict {
	name := e.runtime.Name()
	if pattern, found := Denylisted(req.Code); found {
		debug.Log("sandbox", "denylisted", "runtime", name, "pattern", pattern)
		observability.SandboxVerdictsTotal.WithLabelValues(name, string(api.VerdictUnsafe)).Inc()
		return api.VerdictUnsafe
	}

	req.MaxSteps = e.maxSteps
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	reply := e.runtime.Exec(ctx, req)
	elapsed := time.Since(start)

	v := verdictOf(reply, pass)
	observability.SandboxVerdictsTotal.WithLabelValues(name, string(v)).Inc()
	observability.SandboxDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if v == api.VerdictError {
		debug.Log("sandbox", "execution error", "runtime", name, "error", debug.Truncate(reply.Error, 300))
	}
	debug.Trace("sandbox", "exec", "runtime", name, "verdict", v, "elapsed", elapsed)
	return v
}

func verdictOf(r Reply, pass func(bool) bool) api.Verdict {
	switch r.Status {
	case StatusTimeout:
		return api.VerdictTimeout
	case StatusOK:
		if r.Value == nil {
			return api.VerdictError
		}
		if pass(*r.Value) {
			return api.VerdictPass
		}
		return api.VerdictFail
	default:
		return api.VerdictError
	}
}

// timeoutReply translates an expired or cancelled context into a reply.
// It returns false while ctx is still live.
func timeoutReply(ctx context.Context) (Reply, bool) {
	err := ctx.Err()
	switch {
	case err == nil:
		return Reply{}, false
	case errors.Is(err, context.DeadlineExceeded):
		return Reply{Status: StatusTimeout, Error: "deadline exceeded"}, true
	default:
		return errorReply("%v", err), true
	}
}

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ChildCommand is the hidden autoif subcommand that serves one Starlark
// request.
const ChildCommand = "sandbox-exec"

// StarlarkConfig configures the starlark runtime.
type StarlarkConfig struct {
	// Command is the argv that starts a child serving ServeChild. Default:
	// the running executable followed by ChildCommand.
	Command []string

	// Env is appended to the child's scrubbed environment.
	Env []string

	// MemoryLimitMB is handed to the child as its Go soft memory limit.
	MemoryLimitMB int

	// Timeout is the per-call deadline, used to derive the CPU limit.
	Timeout time.Duration
}

// Starlark runs verifiers written in Starlark, the Python dialect, in a
// re-executed copy of the current binary.
type Starlark struct {
	command []string
	env     []string
	limits  Limits
}

// NewStarlark resolves the child command.
func NewStarlark(cfg StarlarkConfig) (*Starlark, error) {
	command := cfg.Command
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("starlark runtime: %w", err)
		}
		command = []string{exe, ChildCommand}
	}

	env := []string{"PATH=/usr/bin:/bin"}
	if cfg.MemoryLimitMB > 0 {
		env = append(env, fmt.Sprintf("GOMEMLIMIT=%dMiB", cfg.MemoryLimitMB))
	}
	env = append(env, cfg.Env...)

	// The Go runtime reserves far more address space than it uses, so the
	// child gets GOMEMLIMIT instead of RLIMIT_AS.
	limits := limitsFor(0, cfg.Timeout)

	return &Starlark{command: command, env: env, limits: limits}, nil
}

// Name implements Runtime.
func (s *Starlark) Name() string { return "starlark" }

// Exec runs one request in a fresh child.
func (s *Starlark) Exec(ctx context.Context, req Request) Reply {
	dir, err := os.MkdirTemp("", "autoif-starlark-*")
	if err != nil {
		return errorReply("create work dir: %v", err)
	}
	defer os.RemoveAll(dir)
	return spawn(ctx, s.command, dir, s.env, req, s.limits)
}

// Close implements Runtime.
func (s *Starlark) Close() error { return nil }

// ServeChild reads one Request from r, evaluates it as Starlark and
// writes the Reply to w. It is the body of the sandbox-exec subcommand.
func ServeChild(r io.Reader, w io.Writer) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return json.NewEncoder(w).Encode(evalStarlark(req))
}

var starlarkOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

func evalStarlark(req Request) Reply {
	thread := &starlark.Thread{
		Name:  "verifier",
		Print: func(*starlark.Thread, string) {},
	}
	if req.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(req.MaxSteps)
	}

	globals, err := starlark.ExecFileOptions(starlarkOptions, thread, "verifier.star", req.Code, nil)
	if err != nil {
		return errorReply("%v", err)
	}
	fn, ok := globals["evaluate"].(starlark.Callable)
	if !ok {
		return errorReply("evaluate is not defined")
	}
	if req.CompileOnly {
		return okReply(true)
	}

	res, err := starlark.Call(thread, fn, starlark.Tuple{starlark.String(req.Input)}, nil)
	if err != nil {
		return errorReply("%v", err)
	}
	switch v := res.(type) {
	case starlark.Bool:
		return okReply(bool(v))
	case starlark.Int:
		if n, ok := v.Int64(); ok && (n == 0 || n == 1) {
			return okReply(n == 1)
		}
	}
	return errorReply("evaluate returned %s", res.Type())
}

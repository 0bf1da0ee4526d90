package sandbox

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

//go:embed harness.py
var harnessSource []byte

// PythonConfig configures the python runtime.
type PythonConfig struct {
	// Interpreter is the python executable. Default: python3.
	Interpreter string

	// MemoryLimitMB caps the child's address space. Zero disables the cap.
	MemoryLimitMB int

	// Timeout is the per-call deadline, used to derive the CPU limit.
	Timeout time.Duration
}

// Python runs verifiers with a CPython interpreter in isolated mode.
type Python struct {
	interpreter string
	dir         string
	harness     string
	limits      Limits
}

// NewPython writes the harness to a private temporary directory.
func NewPython(cfg PythonConfig) (*Python, error) {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	interpreter, err := exec.LookPath(cfg.Interpreter)
	if err != nil {
		return nil, fmt.Errorf("python runtime: %w", err)
	}

	dir, err := os.MkdirTemp("", "autoif-sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("python runtime: %w", err)
	}
	harness := filepath.Join(dir, "harness.py")
	if err := os.WriteFile(harness, harnessSource, 0o444); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("python runtime: %w", err)
	}

	return &Python{
		interpreter: interpreter,
		dir:         dir,
		harness:     harness,
		limits:      limitsFor(cfg.MemoryLimitMB, cfg.Timeout),
	}, nil
}

// Name implements Runtime.
func (p *Python) Name() string { return "python" }

// Exec runs one request in a fresh interpreter with an empty working
// directory and a scrubbed environment.
func (p *Python) Exec(ctx context.Context, req Request) Reply {
	workDir, err := os.MkdirTemp(p.dir, "call-*")
	if err != nil {
		return errorReply("create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	env := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + workDir,
		"LANG=C.UTF-8",
		"PYTHONIOENCODING=utf-8",
		"PYTHONDONTWRITEBYTECODE=1",
		"PYTHONHASHSEED=0",
	}
	argv := []string{p.interpreter, "-I", "-S", p.harness}
	return spawn(ctx, argv, workDir, env, req, p.limits)
}

// Close removes the harness directory.
func (p *Python) Close() error {
	return os.RemoveAll(p.dir)
}

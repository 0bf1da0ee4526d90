package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"time"

	"github.com/rhuss/autoif/pkg/debug"
)

const (
	maxStdout = 64 << 10
	maxStderr = 16 << 10

	// waitDelay bounds how long Wait blocks on pipes after the child
	// group was killed.
	waitDelay = 250 * time.Millisecond
)

// Limits bounds the resources of one child. Zero fields are not applied.
type Limits struct {
	MemoryBytes   uint64
	CPUSeconds    uint64
	OpenFiles     uint64
	FileSizeBytes uint64
}

// limitsFor derives child limits from the configured memory cap and the
// per-call timeout.
func limitsFor(memoryLimitMB int, timeout time.Duration) Limits {
	l := Limits{
		OpenFiles:     64,
		FileSizeBytes: 1 << 20,
	}
	if memoryLimitMB > 0 {
		l.MemoryBytes = uint64(memoryLimitMB) << 20
	}
	if timeout > 0 {
		l.CPUSeconds = uint64(math.Ceil(timeout.Seconds())) + 1
	}
	return l
}

// spawn runs argv in its own process group with the request on stdin and
// decodes the reply from stdout. The whole group is killed when ctx ends.
func spawn(ctx context.Context, argv []string, dir string, env []string, req Request, limits Limits) Reply {
	payload, err := json.Marshal(req)
	if err != nil {
		return errorReply("encode request: %v", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(payload)
	stdout := &cappedBuffer{max: maxStdout}
	stderr := &cappedBuffer{max: maxStderr}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return errorReply("start %s: %v", argv[0], err)
	}
	// The child may run briefly before its limits apply.
	if err := applyLimits(cmd.Process.Pid, limits); err != nil {
		debug.Log("sandbox", "applying limits failed", "pid", cmd.Process.Pid, "error", err)
	}

	waitErr := cmd.Wait()
	if r, done := timeoutReply(ctx); done {
		return r
	}
	return decodeReply(stdout.Bytes(), stderr.String(), waitErr)
}

package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reply statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Request is the JSON document a runtime child reads from stdin.
type Request struct {
	Code  string `json:"code"`
	Input string `json:"input"`

	// CompileOnly asks the child to load the code and confirm that it
	// defines evaluate, without calling it.
	CompileOnly bool `json:"compile_only,omitempty"`

	// MaxSteps bounds Starlark execution. Zero means unbounded.
	MaxSteps uint64 `json:"max_steps,omitempty"`
}

// Reply is the JSON document a runtime child writes to stdout.
type Reply struct {
	Status string `json:"status"`
	Value  *bool  `json:"value"`
	Error  string `json:"error,omitempty"`
}

func okReply(v bool) Reply {
	return Reply{Status: StatusOK, Value: &v}
}

func errorReply(format string, args ...any) Reply {
	return Reply{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// decodeReply parses the child's stdout. A child that died without
// answering is reported as an error carrying its stderr.
func decodeReply(stdout []byte, stderr string, waitErr error) Reply {
	var r Reply
	if err := json.Unmarshal(stdout, &r); err == nil && r.Status != "" {
		return r
	}
	msg := strings.TrimSpace(stderr)
	if len(msg) > 512 {
		msg = msg[len(msg)-512:]
	}
	if waitErr != nil {
		return errorReply("child failed: %v: %s", waitErr, msg)
	}
	return errorReply("child produced no reply: %s", msg)
}

// cappedBuffer keeps at most max bytes and drops the rest.
type cappedBuffer struct {
	max int
	buf []byte
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte  { return b.buf }
func (b *cappedBuffer) String() string { return string(b.buf) }

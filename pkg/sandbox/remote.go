package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EvaluateRequest is the body of POST /evaluate on the sandbox server.
type EvaluateRequest struct {
	Request
	TimeoutMs int64 `json:"timeout_ms,omitempty"`
}

// Remote sends each request to a sandbox server, which runs it with its
// local python runtime.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote creates a client for the sandbox server at baseURL.
func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Per-call deadlines come from the context.
			Timeout: 2 * time.Minute,
		},
	}
}

// Name implements Runtime.
func (r *Remote) Name() string { return "remote" }

// Exec posts req to /evaluate with the remaining deadline as timeout_ms.
func (r *Remote) Exec(ctx context.Context, req Request) Reply {
	body := EvaluateRequest{Request: req}
	if deadline, ok := ctx.Deadline(); ok {
		body.TimeoutMs = max(time.Until(deadline).Milliseconds(), 1)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return errorReply("marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/evaluate", bytes.NewReader(payload))
	if err != nil {
		return errorReply("create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if rep, done := timeoutReply(ctx); done {
			return rep
		}
		return errorReply("sandbox request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxStdout))
	if err != nil {
		if rep, done := timeoutReply(ctx); done {
			return rep
		}
		return errorReply("read response: %v", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return errorReply("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return errorReply("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var reply Reply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return errorReply("decode response: %v", err)
	}
	return reply
}

// Close releases idle connections.
func (r *Remote) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

// Health reports the server's /health document.
func (r *Remote) Health(ctx context.Context) (map[string]any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox health: HTTP %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("sandbox health: %w", err)
	}
	return out, nil
}

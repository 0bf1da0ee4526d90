package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
	"github.com/rhuss/autoif/pkg/sandbox"
	"github.com/rhuss/autoif/pkg/transport"
)

const maxRequestBytes = 1 << 20

type serverConfig struct {
	maxConcurrent  int
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	runtimeVersion string
}

type sandboxServer struct {
	runtime     sandbox.Runtime
	cfg         serverConfig
	currentLoad atomic.Int32
	startTime   time.Time
}

func newServer(rt sandbox.Runtime, cfg serverConfig) *sandboxServer {
	if cfg.maxConcurrent < 1 {
		cfg.maxConcurrent = 1
	}
	if cfg.maxTimeout <= 0 {
		cfg.maxTimeout = 30 * time.Second
	}
	if cfg.defaultTimeout <= 0 || cfg.defaultTimeout > cfg.maxTimeout {
		cfg.defaultTimeout = min(3*time.Second, cfg.maxTimeout)
	}
	return &sandboxServer{runtime: rt, cfg: cfg, startTime: time.Now()}
}

func (s *sandboxServer) routes(metrics bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /health", s.handleHealth)
	if metrics {
		mux.Handle("GET /metrics", observability.Handler())
	}
	chain := transport.Chain(
		transport.Recovery(nil),
		transport.RequestID(),
		transport.Logging(nil),
	)
	return chain(observability.MetricsMiddleware(mux))
}

// --- Evaluate handler ---

func (s *sandboxServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if int(current) > s.cfg.maxConcurrent {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("at capacity (%d/%d concurrent evaluations)", current, s.cfg.maxConcurrent))
		return
	}

	var req sandbox.EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	if pattern, found := sandbox.Denylisted(req.Code); found {
		debug.Log("sandbox", "rejecting denylisted code", "pattern", pattern)
		writeReply(w, sandbox.Reply{Status: sandbox.StatusError, Error: "code contains denylisted pattern " + pattern})
		return
	}

	timeout := s.timeoutFor(req.TimeoutMs)
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	start := time.Now()
	reply := s.runtime.Exec(ctx, req.Request)
	slog.Debug("evaluate",
		"code", debug.Truncate(req.Code, 120),
		"compile_only", req.CompileOnly,
		"status", reply.Status,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	writeReply(w, reply)
}

// timeoutFor clamps a requested timeout to (0, maxTimeout].
func (s *sandboxServer) timeoutFor(ms int64) time.Duration {
	if ms <= 0 {
		return s.cfg.defaultTimeout
	}
	return min(time.Duration(ms)*time.Millisecond, s.cfg.maxTimeout)
}

// --- Health handler ---

type healthResponse struct {
	Status         string `json:"status"`
	Runtime        string `json:"runtime"`
	RuntimeVersion string `json:"runtime_version"`
	Capacity       int    `json:"capacity"`
	CurrentLoad    int    `json:"current_load"`
	UptimeSecs     int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:         "healthy",
		Runtime:        s.runtime.Name(),
		RuntimeVersion: s.cfg.runtimeVersion,
		Capacity:       s.cfg.maxConcurrent,
		CurrentLoad:    int(s.currentLoad.Load()),
		UptimeSecs:     int64(time.Since(s.startTime).Seconds()),
	})
}

// --- Helpers ---

func writeReply(w http.ResponseWriter, reply sandbox.Reply) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

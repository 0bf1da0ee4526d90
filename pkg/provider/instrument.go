package provider

import (
	"context"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
)

// instrumented records request counts, latency and token usage for every
// Generate call of the wrapped provider.
type instrumented struct {
	Provider
}

// Instrument wraps p so that its Generate calls are recorded in the
// provider metrics.
func Instrument(p Provider) Provider {
	return &instrumented{Provider: p}
}

// Generate delegates to the wrapped provider and records the outcome.
func (p *instrumented) Generate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := p.Provider.Generate(ctx, req)
	elapsed := time.Since(start)

	name := p.Name()
	status := "ok"
	switch {
	case err == nil:
	case api.IsRateLimited(err):
		status = "rate_limited"
	default:
		status = "error"
	}

	observability.ProviderRequestsTotal.WithLabelValues(name, req.Model, status).Inc()
	observability.ProviderLatency.WithLabelValues(name, req.Model).Observe(elapsed.Seconds())
	if resp != nil {
		observability.ProviderTokensTotal.WithLabelValues(name, req.Model, "input").Add(float64(resp.Usage.InputTokens))
		observability.ProviderTokensTotal.WithLabelValues(name, req.Model, "output").Add(float64(resp.Usage.OutputTokens))
	}

	debug.Log("provider", "generate",
		"provider", name, "model", req.Model, "n", req.Params.Completions(),
		"status", status, "elapsed", elapsed)
	if resp != nil && debug.TraceIsEnabled("provider") {
		for i, c := range resp.Completions {
			debug.Trace("provider", "completion", "index", i, "text", debug.Truncate(c, 2000))
		}
	}

	return resp, err
}

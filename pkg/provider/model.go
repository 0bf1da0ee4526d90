package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/autoif/pkg/api"
)

// ResolveModel picks the model a run generates with. An empty configured
// name selects the first model the backend lists. A configured name the
// backend does not serve halts the run.
func ResolveModel(ctx context.Context, p Provider, configured string) (string, error) {
	models, err := p.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("listing models: %w", err)
	}
	if len(models) == 0 {
		return "", api.NewSystemicError(fmt.Sprintf("%s backend lists no models", p.Name()))
	}

	if configured == "" {
		slog.Info("no model configured, using first listed model", "model", models[0].ID)
		return models[0].ID, nil
	}

	for _, m := range models {
		if m.ID == configured {
			return configured, nil
		}
	}

	available := make([]string, 0, len(models))
	for _, m := range models {
		available = append(available, m.ID)
	}
	return "", api.NewSystemicError(fmt.Sprintf("model %q not served by %s backend (available: %v)", configured, p.Name(), available))
}

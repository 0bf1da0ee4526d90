package stages

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/scheduler"
	"github.com/rhuss/autoif/pkg/storage"
)

// BackTranslate round-trips each accepted instruction through Chinese.
type BackTranslate struct{}

func (BackTranslate) Name() string { return "backtranslate" }

func (s BackTranslate) Run(ctx context.Context, pc *pipeline.Context) error {
	bundles, err := readRecords[api.Bundle](ctx, pc, OutputCrossVal)
	if err != nil {
		return err
	}

	items := make([]api.WorkItem, len(bundles))
	for i, b := range bundles {
		items[i] = api.WorkItem{
			Ordinal:  i,
			Messages: api.UserMessages(backTranslatePrompt(b.Instruction)),
		}
	}

	sched := scheduler.New[[]string](pc.Provider, pc.Cache, pc.Model, pc.SchedulerConfig(s.Name()))
	results, err := sched.Run(ctx, items, func(_ context.Context, _ api.WorkItem, completions []string) (*[]string, error) {
		out := backLines(completions[0])
		return &out, nil
	}, params(1))
	if err != nil {
		return err
	}

	var records []BackTranslationRecord
	for i, b := range bundles {
		back, ok := results[i]
		if !ok {
			continue
		}
		records = append(records, BackTranslationRecord{Bundle: b, BackInstructions: back})
	}
	slog.Info("back-translated instructions", "bundles", len(bundles), "records", len(records))
	return storage.WriteAll(ctx, pc.Store, OutputBackTranslate, records)
}

// backLines returns the non-empty translations on "Back:" lines.
func backLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		rest, ok := strings.CutPrefix(line, "Back:")
		if !ok {
			continue
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

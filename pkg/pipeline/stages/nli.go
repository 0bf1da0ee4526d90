package stages

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/scheduler"
	"github.com/rhuss/autoif/pkg/storage"
)

// Entailment labels.
const (
	labelEntailment    = "entailment"
	labelNeutral       = "neutral"
	labelContradiction = "contradiction"
)

const (
	// maxBackTranslations is how many back-translations are judged per
	// instruction.
	maxBackTranslations = 3

	nliSamples = 8
)

// NLI drops instructions whose back-translations contradict them.
type NLI struct{}

func (NLI) Name() string { return "nli" }

func (s NLI) Run(ctx context.Context, pc *pipeline.Context) error {
	records, err := readRecords[BackTranslationRecord](ctx, pc, OutputBackTranslate)
	if err != nil {
		return err
	}

	var items []api.WorkItem
	for r, rec := range records {
		for j, back := range rec.BackInstructions[:min(len(rec.BackInstructions), maxBackTranslations)] {
			items = append(items, api.WorkItem{
				Ordinal: r*maxBackTranslations + j,
				Messages: []api.Message{{
					Role:    api.RoleSystem,
					Content: nliPrompt(rec.Instruction, back),
				}},
			})
		}
	}

	sched := scheduler.New[string](pc.Provider, pc.Cache, pc.Model, pc.SchedulerConfig(s.Name()))
	labels, err := sched.Run(ctx, items, func(_ context.Context, _ api.WorkItem, completions []string) (*string, error) {
		label := nliLabel(completions[0])
		return &label, nil
	}, params(nliSamples))
	if err != nil {
		return err
	}

	var kept []NLIRecord
	var contradicted, unjudged int
	for r, rec := range records {
		scores, complete := recordLabels(labels, r, min(len(rec.BackInstructions), maxBackTranslations))
		switch {
		case !complete:
			unjudged++
		case slices.Contains(scores, labelContradiction):
			contradicted++
		default:
			kept = append(kept, NLIRecord{BackTranslationRecord: rec, NLIScores: scores})
		}
	}
	slog.Info("entailment filter finished",
		"records", len(records),
		"kept", len(kept),
		"contradicted", contradicted,
		"unjudged", unjudged,
	)
	return storage.WriteAll(ctx, pc.Store, OutputNLI, kept)
}

// recordLabels collects the n labels of record r. It reports false when
// n is zero or any label is missing.
func recordLabels(labels map[int]string, r, n int) ([]string, bool) {
	out := make([]string, 0, n)
	for j := range n {
		l, ok := labels[r*maxBackTranslations+j]
		if !ok {
			return nil, false
		}
		out = append(out, l)
	}
	return out, n > 0
}

// nliLabel maps a judgment to a label. Anything that names neither
// entailment nor neutral counts as a contradiction.
func nliLabel(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(t, labelEntailment):
		return labelEntailment
	case strings.Contains(t, labelNeutral):
		return labelNeutral
	}
	return labelContradiction
}

package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/scheduler"
	"github.com/rhuss/autoif/pkg/storage"
)

// Augment asks the model for new instructions in the style of the seeds.
type Augment struct{}

func (Augment) Name() string { return "augment" }

func (s Augment) Run(ctx context.Context, pc *pipeline.Context) error {
	seeds, err := readLines(pc.Config.Pipeline.SeedFile)
	if err != nil {
		return fmt.Errorf("reading seed instructions: %w", err)
	}

	msgs := api.UserMessages(augmentPrompt(seeds))
	items := make([]api.WorkItem, pc.Config.Pipeline.SeedNum)
	for i := range items {
		items[i] = api.WorkItem{Ordinal: i, Messages: msgs}
	}

	sched := scheduler.New[[]string](pc.Provider, pc.Cache, pc.Model, pc.SchedulerConfig(s.Name()))
	results, err := sched.Run(ctx, items, func(_ context.Context, _ api.WorkItem, completions []string) (*[]string, error) {
		out := bulletLines(completions[0])
		return &out, nil
	}, params(1))
	if err != nil {
		return err
	}

	var all []string
	for _, r := range byOrdinal(results) {
		all = append(all, r...)
	}
	all = dedupe(all)

	records := make([]InstructionRecord, len(all))
	for i, ins := range all {
		records[i] = InstructionRecord{Instruction: ins}
	}
	slog.Info("augmented instructions", "requests", len(items), "instructions", len(records))
	return storage.WriteAll(ctx, pc.Store, OutputAugment, records)
}

// bulletLines returns the text of every line that starts with "- ".
func bulletLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		rest, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}
		if rest = strings.TrimSpace(rest); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

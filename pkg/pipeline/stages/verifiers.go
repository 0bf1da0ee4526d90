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

// verifierSamples is the number of candidate answers per instruction.
const verifierSamples = 8

// Verifiers asks for evaluation functions and test cases for every seed
// and augmented instruction.
type Verifiers struct{}

func (Verifiers) Name() string { return "verifiers" }

func (s Verifiers) Run(ctx context.Context, pc *pipeline.Context) error {
	seeds, err := readLines(pc.Config.Pipeline.SeedFile)
	if err != nil {
		return fmt.Errorf("reading seed instructions: %w", err)
	}
	augmented, err := readRecords[InstructionRecord](ctx, pc, OutputAugment)
	if err != nil {
		return err
	}

	instructions := seeds
	for _, r := range augmented {
		instructions = append(instructions, strings.TrimSpace(r.Instruction))
	}

	items := make([]api.WorkItem, len(instructions))
	for i, ins := range instructions {
		items[i] = api.WorkItem{
			Ordinal:  i,
			Messages: api.UserMessages(verifierPrompt(ins)),
			Metadata: ins,
		}
	}

	sched := scheduler.New[VerifierRecord](pc.Provider, pc.Cache, pc.Model, pc.SchedulerConfig(s.Name()))
	results, err := sched.Run(ctx, items, func(_ context.Context, item api.WorkItem, completions []string) (*VerifierRecord, error) {
		rec := &VerifierRecord{
			Instruction: item.Metadata.(string),
			Answers:     make([]string, len(completions)),
		}
		for i, c := range completions {
			rec.Answers[i] = strings.TrimSpace(c)
		}
		return rec, nil
	}, params(verifierSamples))
	if err != nil {
		return err
	}

	records := byOrdinal(results)
	slog.Info("generated verifiers", "instructions", len(items), "records", len(records))
	return storage.WriteAll(ctx, pc.Store, OutputVerifiers, records)
}

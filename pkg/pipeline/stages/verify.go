package stages

import (
	"context"
	"log/slog"

	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/storage"
	"github.com/rhuss/autoif/pkg/validation"
)

// Verify keeps the responses that at least one of the instruction's
// functions accepts.
type Verify struct{}

func (Verify) Name() string { return "verify" }

func (s Verify) Run(ctx context.Context, pc *pipeline.Context) error {
	records, err := readGuarded[QueryRecord](ctx, pc, OutputQueries)
	if err != nil {
		return err
	}

	items := make([]indexed[QueryRecord], len(records))
	for i, r := range records {
		items[i] = indexed[QueryRecord]{index: i, value: r}
	}

	scorer := validation.NewResponseScorer(pc.Sandbox)
	kept, err := validation.Fanout(ctx, pc.PoolConfig(s.Name()), items,
		func(ctx context.Context, it indexed[QueryRecord]) (indexed[[]Sample], bool, error) {
			samples, err := cached(pc, it.index, func() ([]Sample, error) {
				rec := it.value
				responses, err := scorer.Keep(ctx, rec.Sources(), rec.Answers)
				if err != nil {
					return nil, err
				}
				out := make([]Sample, len(responses))
				for i, r := range responses {
					out[i] = Sample{Instruction: rec.Instruction, Query: rec.Query, Response: r}
				}
				return out, nil
			})
			if err != nil {
				return indexed[[]Sample]{}, false, err
			}
			return indexed[[]Sample]{index: it.index, value: samples}, len(samples) > 0, nil
		})
	if err != nil {
		return err
	}

	var all []Sample
	for _, batch := range sortIndexed(kept) {
		all = append(all, batch...)
	}
	unique := dedupe(all)
	slog.Info("query verification finished",
		"records", len(records),
		"samples", len(all),
		"unique", len(unique),
	)
	return storage.WriteAll(ctx, pc.Store, OutputVerify, unique)
}

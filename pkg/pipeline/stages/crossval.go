package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/storage"
	"github.com/rhuss/autoif/pkg/validation"
)

// CrossVal parses verifier answers into bundles and keeps the bundles
// whose functions and cases agree.
type CrossVal struct{}

func (CrossVal) Name() string { return "crossval" }

// crossvalOutcome is the cached result for one verifier record. Bundle is
// nil when the record was rejected.
type crossvalOutcome struct {
	Bundle *api.Bundle
}

func (s CrossVal) Run(ctx context.Context, pc *pipeline.Context) error {
	records, err := readGuarded[VerifierRecord](ctx, pc, OutputVerifiers)
	if err != nil {
		return err
	}

	items := make([]indexed[VerifierRecord], len(records))
	for i, r := range records {
		items[i] = indexed[VerifierRecord]{index: i, value: r}
	}

	engine := validation.NewEngine(pc.Sandbox, pc.Thresholds())
	start := time.Now()
	accepted, err := validation.Fanout(ctx, pc.PoolConfig(s.Name()), items,
		func(ctx context.Context, it indexed[VerifierRecord]) (indexed[api.Bundle], bool, error) {
			out, err := cached(pc, it.index, func() (crossvalOutcome, error) {
				b, err := engine.Validate(ctx, buildBundle(ctx, pc.Sandbox, it.value))
				// Verdicts from a cancelled run are not results.
				if ctxErr := ctx.Err(); ctxErr != nil {
					return crossvalOutcome{}, ctxErr
				}
				switch {
				case err == nil:
					return crossvalOutcome{Bundle: b}, nil
				case api.IsKind(err, api.ErrorKindLowDensity):
					return crossvalOutcome{}, nil
				default:
					return crossvalOutcome{}, err
				}
			})
			if err != nil || out.Bundle == nil {
				return indexed[api.Bundle]{}, false, err
			}
			return indexed[api.Bundle]{index: it.index, value: *out.Bundle}, true, nil
		})
	if err != nil {
		return err
	}

	bundles := sortIndexed(accepted)
	slog.Info("cross validation finished",
		"records", len(records),
		"accepted", len(bundles),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return storage.WriteAll(ctx, pc.Store, OutputCrossVal, bundles)
}

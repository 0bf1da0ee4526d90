package stages

import (
	"cmp"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	farm "github.com/dgryski/go-farm"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/storage"
)

// Output names, one per stage.
const (
	OutputAugment       = "augment_instructions"
	OutputVerifiers     = "eval_func_rft"
	OutputCrossVal      = "cross_validation"
	OutputBackTranslate = "backtranslator"
	OutputNLI           = "backtranslator_filter"
	OutputQueries       = "sharegpt_query"
	OutputVerify        = "query_verification"
	OutputSFT           = "sft_data"
)

// All returns the stages in pipeline order.
func All() []pipeline.Stage {
	return []pipeline.Stage{
		Augment{},
		Verifiers{},
		CrossVal{},
		BackTranslate{},
		NLI{},
		Queries{},
		Verify{},
		SFT{},
	}
}

// params returns the sampling parameters every generating stage uses,
// with n completions per request.
func params(n int) api.SamplingParams {
	topP, temperature := 1.0, 1.0
	repetition, frequency := 1.0, 0.0
	maxTokens := 2048
	return api.SamplingParams{
		N:                 n,
		TopP:              &topP,
		Temperature:       &temperature,
		RepetitionPenalty: &repetition,
		FrequencyPenalty:  &frequency,
		MaxTokens:         &maxTokens,
	}
}

// byOrdinal returns the results ordered by ordinal.
func byOrdinal[T any](results map[int]T) []T {
	keys := slices.Sorted(maps.Keys(results))
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = results[k]
	}
	return out
}

// indexed pairs a result with the position of its input record.
type indexed[T any] struct {
	index int
	value T
}

func sortIndexed[T any](xs []indexed[T]) []T {
	slices.SortFunc(xs, func(a, b indexed[T]) int { return cmp.Compare(a.index, b.index) })
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = x.value
	}
	return out
}

// dedupe removes repeated values, keeping the first occurrence.
func dedupe[T comparable](xs []T) []T {
	seen := make(map[T]struct{}, len(xs))
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

// readRecords reads a previous stage's output.
func readRecords[T any](ctx context.Context, pc *pipeline.Context, name string) ([]T, error) {
	out, err := storage.ReadAll[T](ctx, pc.Store, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return out, nil
}

// readGuarded reads a previous stage's output and fingerprints it into the
// running stage's cache, so a resumed stage cannot mix results computed
// from different inputs. Stages that dispatch through the scheduler get
// this check from the scheduler instead.
func readGuarded[T any](ctx context.Context, pc *pipeline.Context, name string) ([]T, error) {
	raw, err := pc.Store.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var n [8]byte
	buf := make([]byte, 0, 1024)
	for _, r := range raw {
		binary.BigEndian.PutUint64(n[:], uint64(len(r)))
		buf = append(buf, n[:]...)
		buf = append(buf, r...)
	}
	fp := farm.Fingerprint64(buf)
	stored, ok, err := pc.Cache.Fingerprint()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := pc.Cache.SetFingerprint(fp); err != nil {
			return nil, err
		}
	} else if stored != fp {
		return nil, api.NewSystemicError(fmt.Sprintf(
			"stage %d cache was built from a different %s (fingerprint %016x, want %016x); purge it or run without resume",
			pc.Step, name, stored, fp))
	}

	out := make([]T, len(raw))
	for i, r := range raw {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("decoding %s record %d: %w", name, i, err)
		}
	}
	return out, nil
}

// cached computes fn for the record at index i unless the stage cache
// already holds its result.
func cached[T any](pc *pipeline.Context, i int, fn func() (T, error)) (T, error) {
	var v T
	hit, err := pc.Cache.Contains(i)
	if err != nil {
		return v, err
	}
	if hit {
		err := pc.Cache.Get(i, &v)
		return v, err
	}
	v, err = fn()
	if err != nil {
		return v, err
	}
	return v, pc.Cache.BufferedUpdate(i, v)
}

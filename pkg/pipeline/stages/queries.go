package stages

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/scheduler"
	"github.com/rhuss/autoif/pkg/storage"
)

const querySamples = 4

// Queries pairs each surviving instruction with randomly drawn user
// queries and collects responses that should follow the instruction.
type Queries struct{}

func (Queries) Name() string { return "queries" }

// queryMeta travels with each work item.
type queryMeta struct {
	record int
	query  string
	prompt string
}

func (s Queries) Run(ctx context.Context, pc *pipeline.Context) error {
	records, err := readRecords[NLIRecord](ctx, pc, OutputNLI)
	if err != nil {
		return err
	}
	if pc.Config.Pipeline.QueriesFile == "" {
		return api.NewSystemicError("pipeline.queries_file is required by the queries stage")
	}
	pool, err := loadQueries(pc.Config.Pipeline.QueriesFile)
	if err != nil {
		return fmt.Errorf("reading queries: %w", err)
	}
	if len(pool) == 0 && len(records) > 0 {
		return api.NewSystemicError(fmt.Sprintf("no usable queries in %s", pc.Config.Pipeline.QueriesFile))
	}

	k := pc.Config.Pipeline.QueriesPerInstruction
	seed := uint64(pc.Config.Pipeline.RandomSeed)
	rng := rand.New(rand.NewPCG(seed, seed))

	var items []api.WorkItem
	for r, rec := range records {
		for j, qi := range sampleIndices(rng, len(pool), k) {
			prompt := queryPrompt(rec.Instruction, pool[qi])
			items = append(items, api.WorkItem{
				Ordinal:  r*k + j,
				Messages: api.UserMessages(prompt),
				Metadata: queryMeta{record: r, query: pool[qi], prompt: prompt},
			})
		}
	}

	sched := scheduler.New[QueryRecord](pc.Provider, pc.Cache, pc.Model, pc.SchedulerConfig(s.Name()))
	results, err := sched.Run(ctx, items, func(_ context.Context, item api.WorkItem, completions []string) (*QueryRecord, error) {
		meta := item.Metadata.(queryMeta)
		rec := &QueryRecord{
			Bundle:  records[meta.record].Bundle,
			Prompt:  meta.prompt,
			Query:   meta.query,
			Answers: make([]string, len(completions)),
		}
		for i, c := range completions {
			rec.Answers[i] = strings.TrimSpace(c)
		}
		return rec, nil
	}, params(querySamples))
	if err != nil {
		return err
	}

	out := byOrdinal(results)
	slog.Info("generated query responses", "instructions", len(records), "queries", len(items), "records", len(out))
	return storage.WriteAll(ctx, pc.Store, OutputQueries, out)
}

// sampleIndices draws min(k, n) distinct indices from [0, n) using
// Floyd's algorithm. The draw order depends only on rng's state.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	k = min(k, n)
	out := make([]int, 0, k)
	seen := make(map[int]struct{}, k)
	for j := n - k; j < n; j++ {
		t := rng.IntN(j + 1)
		if _, dup := seen[t]; dup {
			t = j
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

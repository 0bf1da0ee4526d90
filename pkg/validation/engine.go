package validation

import (
	"context"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
)

// Executor runs one verifier call. *sandbox.Executor implements it.
type Executor interface {
	Check(ctx context.Context, code, input string, expected bool) api.Verdict
	Evaluate(ctx context.Context, code, input string) api.Verdict
}

// Config holds the acceptance thresholds.
type Config struct {
	MinScore     float64
	MinFunctions int
	MinCases     int
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{MinScore: 0.8, MinFunctions: 3, MinCases: 10}
}

// Engine validates instruction bundles. It is safe for concurrent use if
// its Executor is.
type Engine struct {
	exec Executor
	cfg  Config
}

// NewEngine creates an Engine.
func NewEngine(exec Executor, cfg Config) *Engine {
	return &Engine{exec: exec, cfg: cfg}
}

// Report is the outcome of scoring a bundle before any threshold is
// applied.
type Report struct {
	// Cases are the deduplicated test cases that at least one function
	// answers correctly.
	Cases []api.TestCase

	// Functions holds every deduplicated function with its score over
	// Cases.
	Functions []api.ScoredFunction

	// passed[i][j] is true when Functions[j] answers Cases[i] correctly.
	passed [][]bool
}

// Score builds the verdict matrix for b and scores each function against
// the filtered cases.
func (e *Engine) Score(ctx context.Context, b *api.Bundle) (*Report, error) {
	funcs := dedupeFunctions(b.Functions)
	cases := dedupeCases(b.Cases)

	// passed[i][j] is true when function j answers case i correctly.
	passed := make([][]bool, 0, len(cases))
	var kept []api.TestCase
	for _, tc := range cases {
		row := make([]bool, len(funcs))
		agreed := false
		for j, fn := range funcs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if e.exec.Check(ctx, fn, tc.Input, tc.Expected) == api.VerdictPass {
				row[j] = true
				agreed = true
			}
		}
		if agreed {
			kept = append(kept, tc)
			passed = append(passed, row)
		}
	}

	report := &Report{Cases: kept, Functions: make([]api.ScoredFunction, len(funcs)), passed: passed}
	for j, fn := range funcs {
		report.Functions[j] = api.ScoredFunction{Source: fn, Score: fraction(passed, j)}
	}
	return report, nil
}

// fraction returns the share of rows in which column j is true.
func fraction(rows [][]bool, j int) float64 {
	if len(rows) == 0 {
		return 0
	}
	correct := 0
	for _, row := range rows {
		if row[j] {
			correct++
		}
	}
	return float64(correct) / float64(len(rows))
}

// Validate returns the accepted bundle, or nil with a LowDensity error
// when too few functions or cases survive. Any other error comes from
// ctx.
func (e *Engine) Validate(ctx context.Context, b *api.Bundle) (*api.Bundle, error) {
	// Filtering only shrinks both sets, so a bundle that starts below the
	// thresholds can never pass them.
	if nf, nc := len(dedupeFunctions(b.Functions)), len(dedupeCases(b.Cases)); nf < e.cfg.MinFunctions || nc < e.cfg.MinCases {
		return nil, e.reject(b, nf, nc, 0)
	}

	report, err := e.Score(ctx, b)
	if err != nil {
		return nil, err
	}

	var survivors []int
	for j, f := range report.Functions {
		if f.Score >= e.cfg.MinScore {
			survivors = append(survivors, j)
		}
	}

	// A case only a dropped function agreed with is removed, and the
	// survivors are rescored on what is left. Their scores cannot fall.
	var (
		cases []api.TestCase
		rows  [][]bool
	)
	for i, row := range report.passed {
		for _, j := range survivors {
			if row[j] {
				cases = append(cases, report.Cases[i])
				rows = append(rows, row)
				break
			}
		}
	}
	if len(survivors) < e.cfg.MinFunctions || len(cases) < e.cfg.MinCases {
		return nil, e.reject(b, len(survivors), len(cases), len(report.Functions))
	}

	scored := make([]api.ScoredFunction, len(survivors))
	for k, j := range survivors {
		scored[k] = api.ScoredFunction{Source: report.Functions[j].Source, Score: fraction(rows, j)}
	}

	observability.BundlesTotal.WithLabelValues("accepted").Inc()
	debug.Log("validation", "bundle accepted",
		"instruction", debug.Truncate(b.Instruction, 80),
		"functions", len(scored), "cases", len(cases))
	return &api.Bundle{
		Instruction: b.Instruction,
		Scored:      scored,
		Cases:       cases,
	}, nil
}

func (e *Engine) reject(b *api.Bundle, functions, cases, scored int) error {
	outcome := "low_density"
	if functions == 0 && scored > 0 {
		outcome = "no_functions"
	}
	observability.BundlesTotal.WithLabelValues(outcome).Inc()
	debug.Log("validation", "bundle dropped",
		"instruction", debug.Truncate(b.Instruction, 80),
		"outcome", outcome, "functions", functions, "cases", cases)
	return api.NewLowDensityError(functions, cases)
}

func dedupeFunctions(funcs []string) []string {
	seen := make(map[string]struct{}, len(funcs))
	out := make([]string, 0, len(funcs))
	for _, f := range funcs {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func dedupeCases(cases []api.TestCase) []api.TestCase {
	seen := make(map[api.TestCase]struct{}, len(cases))
	out := make([]api.TestCase, 0, len(cases))
	for _, tc := range cases {
		if _, ok := seen[tc]; ok {
			continue
		}
		seen[tc] = struct{}{}
		out = append(out, tc)
	}
	return out
}

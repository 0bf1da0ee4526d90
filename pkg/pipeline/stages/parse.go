package stages

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/observability"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/sandbox"
)

var jsonBlock = regexp.MustCompile("(?s)```json(.*?)```")

// answer is the JSON object a verifier response carries.
type answer struct {
	Func  *string           `json:"func"`
	Cases []json.RawMessage `json:"cases"`
}

// parseAnswer extracts the function and test cases from one verifier
// response. The function is returned with network lines removed and
// escaped newlines expanded. Cases that do not decode are skipped.
func parseAnswer(response string) (string, []api.TestCase, error) {
	m := jsonBlock.FindStringSubmatch(response)
	if m == nil {
		return "", nil, api.NewMalformedOutputError("no ```json block", nil)
	}
	var a answer
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &a); err != nil {
		return "", nil, api.NewMalformedOutputError("invalid answer JSON", err)
	}
	if a.Func == nil {
		return "", nil, api.NewMalformedOutputError("answer has no func", nil)
	}

	fn := sanitizeFunc(strings.TrimSpace(*a.Func))
	if pattern, found := sandbox.Denylisted(fn); found {
		return "", nil, api.NewUnsafeCodeError(pattern)
	}

	cases := make([]api.TestCase, 0, len(a.Cases))
	for _, raw := range a.Cases {
		var tc api.TestCase
		if err := json.Unmarshal(raw, &tc); err != nil {
			debug.Log("pipeline", "skipping test case", "error", err)
			continue
		}
		cases = append(cases, tc)
	}
	return fn, cases, nil
}

// sanitizeFunc drops lines that reach for the network and expands
// literal \n sequences.
func sanitizeFunc(fn string) string {
	lines := strings.Split(fn, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.Contains(l, "download") || strings.Contains(l, "requests") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.ReplaceAll(strings.Join(kept, "\n"), `\n`, "\n")
}

// buildBundle turns the verifier answers of one instruction into an
// unvalidated bundle. An answer whose function does not load is dropped
// together with its cases.
func buildBundle(ctx context.Context, sb pipeline.Sandbox, rec VerifierRecord) *api.Bundle {
	b := &api.Bundle{Instruction: rec.Instruction}
	for _, resp := range rec.Answers {
		fn, cases, err := parseAnswer(resp)
		if err != nil {
			outcome := "malformed"
			if api.IsKind(err, api.ErrorKindUnsafeCode) {
				outcome = "unsafe"
			}
			observability.CandidatesTotal.WithLabelValues(outcome).Inc()
			debug.Log("pipeline", "discarding candidate",
				"instruction", debug.Truncate(rec.Instruction, 80), "error", err)
			continue
		}
		if v := sb.Compile(ctx, fn); v != api.VerdictPass {
			observability.CandidatesTotal.WithLabelValues("compile_error").Inc()
			debug.Log("pipeline", "candidate does not load",
				"instruction", debug.Truncate(rec.Instruction, 80), "verdict", v)
			continue
		}
		observability.CandidatesTotal.WithLabelValues("accepted").Inc()
		b.Functions = append(b.Functions, fn)
		b.Cases = append(b.Cases, cases...)
	}
	return b
}

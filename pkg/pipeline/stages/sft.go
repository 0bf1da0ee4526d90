package stages

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/pipeline"
	"github.com/rhuss/autoif/pkg/storage"
)

// SFT turns verified samples into user/assistant dialogs.
type SFT struct{}

func (SFT) Name() string { return "sft" }

func (SFT) Run(ctx context.Context, pc *pipeline.Context) error {
	samples, err := readRecords[Sample](ctx, pc, OutputVerify)
	if err != nil {
		return err
	}

	dialogs := make([]Dialog, 0, len(samples))
	for _, s := range samples {
		prompt, ok := sftPrompt(s.Query, s.Instruction)
		if !ok {
			continue
		}
		dialogs = append(dialogs, Dialog{Dialogs: []api.Message{
			{Role: api.RoleUser, Content: prompt},
			{Role: api.RoleAssistant, Content: s.Response},
		}})
	}
	slog.Info("built sft data", "samples", len(samples), "dialogs", len(dialogs))
	return storage.WriteAll(ctx, pc.Store, OutputSFT, dialogs)
}

// sftPrompt joins a query and an instruction into one user turn. A query
// without its own punctuation gets a period before the instruction.
func sftPrompt(query, instruction string) (string, bool) {
	query = capitalize(strings.TrimSpace(query))
	instruction = capitalize(strings.TrimRight(strings.TrimSpace(instruction), "."))
	if query == "" || instruction == "" {
		return "", false
	}
	if strings.ContainsAny(query, "?.") {
		return query + " " + instruction + ".", true
	}
	return query + ". " + instruction + ".", true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

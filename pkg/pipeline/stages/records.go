package stages

import "github.com/rhuss/autoif/pkg/api"

// InstructionRecord is one augmented instruction.
type InstructionRecord struct {
	Instruction string `json:"instruction"`
}

// VerifierRecord holds the raw verifier answers for one instruction.
type VerifierRecord struct {
	Instruction string   `json:"instruction"`
	Answers     []string `json:"gpt-answer"`
}

// BackTranslationRecord is an accepted bundle with its back-translations.
type BackTranslationRecord struct {
	api.Bundle
	BackInstructions []string `json:"back_instruction"`
}

// NLIRecord is a back-translated bundle with its entailment labels.
type NLIRecord struct {
	BackTranslationRecord
	NLIScores []string `json:"nli_scores"`
}

// QueryRecord is one instruction/query pair with the model's responses.
type QueryRecord struct {
	api.Bundle
	Prompt  string   `json:"prompt"`
	Query   string   `json:"query"`
	Answers []string `json:"gpt-answer"`
}

// Sample is a response accepted by the instruction's verifiers.
type Sample struct {
	Instruction string `json:"instruction"`
	Query       string `json:"query"`
	Response    string `json:"response"`
}

// Dialog is one SFT training example.
type Dialog struct {
	Dialogs []api.Message `json:"dialogs"`
}

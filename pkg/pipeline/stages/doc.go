// Package stages implements the eight AutoIF pipeline stages:
//
//  1. augment: expand seed instructions with the model
//  2. verifiers: generate verifier functions and test cases per instruction
//  3. crossval: cross-validate functions against cases
//  4. backtranslate: back-translate each accepted instruction
//  5. nli: drop instructions whose back-translations contradict them
//  6. queries: pair instructions with sampled user queries and answer them
//  7. verify: keep the responses the verifiers accept
//  8. sft: build the training dialogs
//
// Each stage reads the previous stage's output from the RecordStore and
// writes its own under the names below.
package stages

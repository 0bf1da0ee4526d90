// Package api defines the core data types shared by every pipeline stage:
// work items dispatched to the generation service, instruction bundles with
// their candidate verifier functions and test cases, sandbox verdicts, and
// the typed error taxonomy used across the module.
//
// The package performs no I/O. All record types produce JSON compatible with
// the line-delimited stage files written between pipeline stages.
//
// Core types:
//   - [WorkItem]: One request to the generation service, keyed by ordinal
//   - [Bundle]: One instruction with its functions and test cases
//   - [Verdict]: Typed outcome of one sandboxed execution
//   - [Error]: Structured error carrying an [ErrorKind]
package api

// Package storage defines the RecordStore that carries line-delimited JSON
// records between pipeline stages, together with typed helpers and the
// sentinel errors shared by its adapters.
//
// Adapters live in sub-packages: jsonl (files in the output directory,
// the default), postgres (a stage_records table) and memory (tests).
package storage

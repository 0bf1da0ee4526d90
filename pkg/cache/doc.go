// Package cache provides the stage-scoped resumable result cache.
//
// A Cache maps work-item ordinals to msgpack-encoded results persisted in
// an embedded BadgerDB. Writes land in an in-memory buffer that is flushed
// on a fixed interval and on Close; reads observe buffered entries. A
// process that dies between flushes loses only the unflushed buffer, and
// those ordinals are recomputed on the next run.
//
// Root lays stage caches out as <cache_dir>/stage-<k>. A stage directory
// that exists marks the stage as in progress and resumable.
package cache

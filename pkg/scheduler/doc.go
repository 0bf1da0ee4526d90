// Package scheduler dispatches work items to the generation service
// through a bounded sliding window.
//
// At most Concurrency requests are in flight. The next pending ordinal is
// dispatched as soon as any in-flight request finishes. Before dispatching,
// the stage cache is consulted and hits complete without a request, which
// makes an interrupted stage resumable. Failed items are logged and
// dropped; they leave no cache entry and are retried by the next run.
package scheduler

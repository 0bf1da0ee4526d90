// Package sandbox runs untrusted, model-generated verifier functions.
//
// Every call executes in a fresh OS process bounded by a deadline and, on
// Linux, by resource limits. Only a typed api.Verdict crosses back to the
// caller. Three runtimes are available:
//
//   - python: a temporary harness run by python3 in isolated mode
//   - starlark: the autoif binary re-executed as "autoif sandbox-exec"
//   - remote: a cmd/sandbox-server instance reached over HTTP
//
// A static denylist is consulted before anything runs. It is a best-effort
// filter against obviously destructive code, not a security boundary.
package sandbox

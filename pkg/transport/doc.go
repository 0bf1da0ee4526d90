// Package transport provides the net/http middleware chain shared by the
// project's HTTP servers: panic recovery, request ID assignment
// (X-Request-ID) and structured request logging via log/slog.
package transport

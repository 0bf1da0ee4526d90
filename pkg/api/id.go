package api

import (
	"strings"

	"github.com/google/uuid"
)

const runIDPrefix = "run_"

// NewRunID generates an identifier for one pipeline invocation. It is only
// used to correlate log lines; cache directories are keyed by stage number,
// not by run.
func NewRunID() string {
	return runIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateRunID checks whether the given string is a run ID produced by
// NewRunID.
func ValidateRunID(id string) bool {
	rest, ok := strings.CutPrefix(id, runIDPrefix)
	if !ok || len(rest) != 32 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

//go:build !linux

package sandbox

// applyLimits is a no-op outside Linux; the deadline still applies.
func applyLimits(int, Limits) error {
	return nil
}

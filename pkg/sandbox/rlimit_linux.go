//go:build linux

package sandbox

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func applyLimits(pid int, l Limits) error {
	set := func(name string, resource int, v uint64) error {
		if v == 0 {
			return nil
		}
		lim := unix.Rlimit{Cur: v, Max: v}
		if err := unix.Prlimit(pid, resource, &lim, nil); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	return errors.Join(
		set("RLIMIT_AS", unix.RLIMIT_AS, l.MemoryBytes),
		set("RLIMIT_CPU", unix.RLIMIT_CPU, l.CPUSeconds),
		set("RLIMIT_NOFILE", unix.RLIMIT_NOFILE, l.OpenFiles),
		set("RLIMIT_FSIZE", unix.RLIMIT_FSIZE, l.FileSizeBytes),
	)
}

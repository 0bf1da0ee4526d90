package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const stageDirPrefix = "stage-"

// Root is the cache directory holding one sub-directory per stage.
type Root struct {
	Dir           string
	FlushInterval time.Duration
	SyncWrites    bool
	Logger        *slog.Logger
}

// StageDir returns the cache directory of stage step.
func (r Root) StageDir(step int) string {
	return filepath.Join(r.Dir, stageDirPrefix+strconv.Itoa(step))
}

// Open opens the cache of stage step, creating its directory.
func (r Root) Open(step int) (*Cache, error) {
	return Open(Config{
		Path:          r.StageDir(step),
		FlushInterval: r.FlushInterval,
		SyncWrites:    r.SyncWrites,
		Logger:        r.Logger,
	})
}

// Purge removes the cache directory of stage step. A missing directory is
// not an error.
func (r Root) Purge(step int) error {
	if err := os.RemoveAll(r.StageDir(step)); err != nil {
		return fmt.Errorf("purge stage %d cache: %w", step, err)
	}
	return nil
}

// InProgress returns the steps whose cache directory exists and is
// non-empty, in ascending order.
func (r Root) InProgress() ([]int, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var steps []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), stageDirPrefix) {
			continue
		}
		step, err := strconv.Atoi(strings.TrimPrefix(e.Name(), stageDirPrefix))
		if err != nil {
			continue
		}
		contents, err := os.ReadDir(filepath.Join(r.Dir, e.Name()))
		if err != nil || len(contents) == 0 {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

// Package jsonl stores stage outputs as line-delimited JSON files named
// <dir>/<name>.jsonl.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/storage"
)

// Store is a directory of .jsonl files.
type Store struct {
	dir string
}

// Ensure Store implements storage.RecordStore at compile time.
var _ storage.RecordStore = (*Store)(nil)

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file that holds name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".jsonl")
}

// Write writes one record per line to a temporary file and renames it over
// the previous output, so readers never observe a partial file.
func (s *Store) Write(ctx context.Context, name string, records []json.RawMessage) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				tmp.Close()
				return err
			}
		}
		var line bytes.Buffer
		if err := json.Compact(&line, r); err != nil {
			tmp.Close()
			return fmt.Errorf("writing %s record %d: %w", name, i, err)
		}
		line.WriteByte('\n')
		if _, err := w.Write(line.Bytes()); err != nil {
			tmp.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	debug.Log("storage", "wrote records", "backend", "jsonl", "name", name, "count", len(records))
	return nil
}

// Read returns the non-empty lines of <name>.jsonl.
func (s *Store) Read(ctx context.Context, name string) ([]json.RawMessage, error) {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	defer f.Close()

	var records []json.RawMessage
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if !json.Valid(trimmed) {
				return nil, fmt.Errorf("reading %s: line %d is not valid JSON", name, lineNo)
			}
			records = append(records, json.RawMessage(trimmed))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	debug.Log("storage", "read records", "backend", "jsonl", "name", name, "count", len(records))
	return records, nil
}

// Close implements storage.RecordStore.
func (s *Store) Close() error { return nil }

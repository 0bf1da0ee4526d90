package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// RecordStore persists the output of a stage as an ordered list of JSON
// records under a name such as "cross_validation".
type RecordStore interface {
	// Write replaces everything stored under name with records.
	Write(ctx context.Context, name string, records []json.RawMessage) error

	// Read returns the records stored under name in write order. It
	// returns ErrNotFound if name was never written.
	Read(ctx context.Context, name string) ([]json.RawMessage, error)

	// Close releases the store's resources.
	Close() error
}

// WriteAll encodes values and writes them under name.
func WriteAll[T any](ctx context.Context, s RecordStore, name string, values []T) error {
	records := make([]json.RawMessage, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s record %d: %w", name, i, err)
		}
		records[i] = b
	}
	return s.Write(ctx, name, records)
}

// ReadAll reads the records under name and decodes them as T.
func ReadAll[T any](ctx context.Context, s RecordStore, name string) ([]T, error) {
	records, err := s.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(records))
	for i, r := range records {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("decoding %s record %d: %w", name, i, err)
		}
	}
	return out, nil
}

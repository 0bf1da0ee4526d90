// Package postgres provides a PostgreSQL implementation of
// storage.RecordStore. Records are kept as JSONB rows in stage_records,
// ordered by their position in the written output.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/autoif/pkg/debug"
	"github.com/rhuss/autoif/pkg/storage"
)

// Store is a PostgreSQL-backed RecordStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.RecordStore at compile time.
var _ storage.RecordStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Write replaces the records under name in a single transaction.
func (s *Store) Write(ctx context.Context, name string, records []json.RawMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Deleting the output row cascades to its records.
	if _, err := tx.Exec(ctx, `DELETE FROM stage_outputs WHERE name = $1`, name); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO stage_outputs (name, count) VALUES ($1, $2)`,
		name, len(records),
	); err != nil {
		return fmt.Errorf("recording %s: %w", name, err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"stage_records"},
		[]string{"name", "seq", "record"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			if !json.Valid(records[i]) {
				return nil, fmt.Errorf("record %d is not valid JSON", i)
			}
			return []any{name, i, []byte(records[i])}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copying %s records: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	debug.Log("storage", "wrote records", "backend", "postgres", "name", name, "count", n)
	return nil
}

// Read returns the records under name in write order.
func (s *Store) Read(ctx context.Context, name string) ([]json.RawMessage, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count FROM stage_outputs WHERE name = $1`, name).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT record FROM stage_records WHERE name = $1 ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("querying %s records: %w", name, err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var b []byte
		err := row.Scan(&b)
		return json.RawMessage(b), err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s records: %w", name, err)
	}
	if len(records) != count {
		return nil, fmt.Errorf("reading %s: expected %d records, found %d", name, count, len(records))
	}
	debug.Log("storage", "read records", "backend", "postgres", "name", name, "count", len(records))
	return records, nil
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

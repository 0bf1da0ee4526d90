package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/autoif/pkg/storage"
)

func init() {
	// Point testcontainers at a podman machine socket when no Docker host
	// is configured.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			if sock := strings.TrimSpace(string(out)); sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped when no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	// Skips, rather than panics, when no Docker or podman socket answers.
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("autoif_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func records(n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`{"instruction":"instruction %d","n":%d}`, i, i))
	}
	return out
}

func TestPostgres_WriteAndRead(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Write(ctx, "augment", records(50)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Read(ctx, "augment")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("len(records) = %d, want 50", len(got))
	}

	var rec struct {
		N int `json:"n"`
	}
	for i, r := range got {
		if err := json.Unmarshal(r, &rec); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if rec.N != i {
			t.Errorf("record %d has n=%d, order not preserved", i, rec.N)
		}
	}
}

func TestPostgres_WriteReplaces(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Write(ctx, "nli", records(10)); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := store.Write(ctx, "nli", records(3)); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	got, err := store.Read(ctx, "nli")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len(records) = %d, want 3", len(got))
	}
}

func TestPostgres_InvalidRecordKeepsPreviousOutput(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Write(ctx, "queries", records(2)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	bad := append(records(1), json.RawMessage(`{broken`))
	if err := store.Write(ctx, "queries", bad); err == nil {
		t.Fatal("expected error for invalid record")
	}

	got, err := store.Read(ctx, "queries")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(records) = %d, want 2 (rolled back)", len(got))
	}
}

func TestPostgres_EmptyAndMissing(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Write(ctx, "empty", nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := store.Read(ctx, "empty")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(records) = %d, want 0", len(got))
	}

	_, err = store.Read(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestPendingMigrations(t *testing.T) {
	migrations, err := pendingMigrations()
	if err != nil {
		t.Fatalf("pendingMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}
	if migrations[0].version != 1 {
		t.Errorf("first migration version = %d, want 1", migrations[0].version)
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations out of order: %v", migrations)
		}
	}
}

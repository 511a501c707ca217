package database

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupSQLiteDB opens a fresh file-backed SQLite database in a temp dir.
func setupSQLiteDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "faik_test.db")})
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupPostgresDB starts a PostgreSQL container and applies the repository
// migrations. It needs Docker, so it only runs with FAIK_POSTGRES_TESTS=1.
func setupPostgresDB(t *testing.T) *DB {
	t.Helper()

	if os.Getenv("FAIK_POSTGRES_TESTS") != "1" {
		t.Skip("set FAIK_POSTGRES_TESTS=1 to run PostgreSQL tests")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("faik_test"),
		postgres.WithUsername("faik_test"),
		postgres.WithPassword("faik_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(Config{
		Type:     "postgres",
		Host:     host,
		Port:     port.Int(),
		User:     "faik_test",
		Password: "faik_test_password",
		Name:     "faik_test",
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := NewMigrator(db).Run(ctx, migrationsDir(t)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to locate test helpers")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

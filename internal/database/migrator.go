package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Migration struct {
	Version string
	Name    string
	SQL     string
}

type Migrator struct {
	db     *sql.DB
	dbType string
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{
		db:     db.conn,
		dbType: db.dbType,
	}
}

// Initialize creates the migrations tracking table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	log.Debug("migration tracking table ready")
	return nil
}

// AppliedMigrations returns the set of already applied migration versions
func (m *Migrator) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// LoadMigrations reads *.sql files named "<version>_<name>.sql", sorted by version.
func LoadMigrations(migrationsPath string) ([]Migration, error) {
	entries, err := os.ReadDir(migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, _, ok := strings.Cut(entry.Name(), "_")
		if !ok || version == "" {
			log.WithField("file", entry.Name()).Warn("skipping invalid migration filename")
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    entry.Name(),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Apply runs a single migration and records it in one transaction
func (m *Migrator) Apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)",
		migration.Version,
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", migration.Name, err)
	}

	log.WithField("migration", migration.Name).Info("applied migration")
	return nil
}

// Pending returns migrations from migrationsPath that have not been applied.
func (m *Migrator) Pending(ctx context.Context, migrationsPath string) ([]Migration, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	applied, err := m.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	migrations, err := LoadMigrations(migrationsPath)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, migration := range migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Run executes all pending migrations. SQLite databases are skipped since
// their schema is created on open.
func (m *Migrator) Run(ctx context.Context, migrationsPath string) (int, error) {
	if m.dbType != "postgres" {
		log.Info("skipping migrations for non-PostgreSQL database")
		return 0, nil
	}

	pending, err := m.Pending(ctx, migrationsPath)
	if err != nil {
		return 0, err
	}

	for _, migration := range pending {
		if err := m.Apply(ctx, migration); err != nil {
			return 0, fmt.Errorf("migration failed: %w", err)
		}
	}

	if len(pending) == 0 {
		log.Info("no pending migrations")
	} else {
		log.WithField("count", len(pending)).Info("applied migrations")
	}

	return len(pending), nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("record not found")

type DB struct {
	conn   *sql.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath+"?_busy_timeout=5000&_foreign_keys=on")
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type}

	// Postgres schema is owned by the migrator.
	if config.Type == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent uploads
		conn.SetMaxOpenConns(1)
		if err := db.createTables(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		stored_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		audio_sha256 TEXT NOT NULL,
		duration_seconds REAL NOT NULL,
		sample_rate INTEGER NOT NULL,
		chunk_duration REAL NOT NULL,
		overlap REAL NOT NULL,
		model_name TEXT NOT NULL,
		is_deepfake BOOLEAN NOT NULL,
		overall_confidence REAL NOT NULL,
		total_chunks INTEGER NOT NULL,
		ai_generated_chunks INTEGER NOT NULL,
		result TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_analyses_audio_sha256 ON analyses(audio_sha256);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Type() string {
	return db.dbType
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

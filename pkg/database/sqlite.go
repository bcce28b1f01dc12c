package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const fkPragma = "_pragma=foreign_keys(1)"

type SQLiteDB struct {
	DB *sql.DB
}

// NewSQLiteDB opens a SQLite database at path. The handle is limited to one
// connection: SQLite has a single writer, and an in-memory database only
// lives as long as its connection.
func NewSQLiteDB(ctx context.Context, path string) (*SQLiteDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// pragmas in the DSN apply to every connection the pool opens
	dsn := MemoryPath + "?" + fkPragma
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?" + fkPragma + "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	return &SQLiteDB{DB: db}, nil
}

// Close closes the database handle
func (s *SQLiteDB) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Health checks the database handle
func (s *SQLiteDB) Health(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// WithTx runs fn inside a transaction, committing on success
func (s *SQLiteDB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Package store provides storage backends for SwiftShowings.
//
// This file implements an SQLite-backed store for records, inbound dedup and
// the outbound message outbox.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "dsn", dsn)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddRecord(ctx context.Context, r models.Record) error {
	if len(r.Fields) == 0 {
		return ErrNilRecord
	}
	fieldsJSON, err := encodeFields(r.Fields)
	if err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = newRecordID()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, kind, user_id, fields_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.UserID, fieldsJSON, r.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore AddRecord failed", "error", err, "kind", r.Kind, "userID", r.UserID)
		return fmt.Errorf("failed to insert %s record for %s: %w", r.Kind, r.UserID, err)
	}
	slog.Debug("SQLiteStore AddRecord succeeded", "id", r.ID, "kind", r.Kind, "userID", r.UserID)
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, kind models.EventKind, limit int) ([]models.Record, error) {
	limit = normalizeLimit(limit)
	var (
		rows *sql.Rows
		err  error
	)
	if kind == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, user_id, fields_json, created_at FROM records ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, user_id, fields_json, created_at FROM records WHERE kind = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			string(kind), limit)
	}
	if err != nil {
		slog.Error("SQLiteStore ListRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			slog.Error("SQLiteStore ListRecords scan failed", "error", err)
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}
	slog.Debug("SQLiteStore ListRecords succeeded", "kind", kind, "count", len(records))
	return records, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

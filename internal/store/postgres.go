// Package store provides storage backends for SwiftShowings.
//
// This file implements a PostgreSQL-backed store for records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddRecord(ctx context.Context, r models.Record) error {
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
		`INSERT INTO records (id, kind, user_id, fields_json, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, string(r.Kind), r.UserID, fieldsJSON, r.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore AddRecord failed", "error", err, "kind", r.Kind, "userID", r.UserID)
		return fmt.Errorf("failed to insert %s record for %s: %w", r.Kind, r.UserID, err)
	}
	slog.Debug("PostgresStore AddRecord succeeded", "id", r.ID, "kind", r.Kind, "userID", r.UserID)
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, kind models.EventKind, limit int) ([]models.Record, error) {
	limit = normalizeLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, user_id, fields_json::text, created_at FROM records
		 WHERE ($1::text = '' OR kind = $1) ORDER BY created_at DESC, seq DESC LIMIT $2`,
		string(kind), limit)
	if err != nil {
		slog.Error("PostgresStore ListRecords query failed", "error", err)
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			slog.Error("PostgresStore ListRecords scan failed", "error", err)
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}
	slog.Debug("PostgresStore ListRecords succeeded", "kind", kind, "count", len(records))
	return records, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}

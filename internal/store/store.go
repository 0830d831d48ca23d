// Package store provides storage backends for SwiftShowings.
//
// Completed flows and conversation exchanges are appended as records. SQLite and
// PostgreSQL backends also carry the inbound dedup table and the outbound
// message outbox; the in-memory store covers records and dedup only.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// Default limits for record listing.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ErrNilRecord is returned when an empty record is appended.
var ErrNilRecord = errors.New("record has no fields")

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a function for configuring a store.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns the database/sql driver name for a DSN: "postgres" for
// postgres URLs and key=value connection strings, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// RecordRepo appends and lists records.
type RecordRepo interface {
	AddRecord(ctx context.Context, r models.Record) error
	// ListRecords returns the newest records first. An empty kind lists all kinds.
	ListRecords(ctx context.Context, kind models.EventKind, limit int) ([]models.Record, error)
}

// Store is the persistence surface used by the application.
type Store interface {
	RecordRepo
	DedupRepo
	Close() error
}

// normalizeLimit clamps a list limit into [1, MaxListLimit].
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// InMemoryStore is a non-durable Store for tests and database-less runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.Record
	inbound map[string]DedupRecord
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)
var _ DedupPruner = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{inbound: make(map[string]DedupRecord)}
}

func (s *InMemoryStore) AddRecord(ctx context.Context, r models.Record) error {
	if len(r.Fields) == 0 {
		return ErrNilRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *InMemoryStore) ListRecords(ctx context.Context, kind models.EventKind, limit int) ([]models.Record, error) {
	limit = normalizeLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.records[i]
		if kind != "" && r.Kind != kind {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inbound[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, senderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inbound[messageID]; ok {
		return false, nil
	}
	s.inbound[messageID] = DedupRecord{MessageID: messageID, SenderID: senderID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.inbound[messageID]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.ProcessedAt = &now
	s.inbound[messageID] = rec
	return nil
}

func (s *InMemoryStore) PruneInbound(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.inbound {
		if rec.ProcessedAt != nil && rec.ReceivedAt.Before(before) {
			delete(s.inbound, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Close() error { return nil }

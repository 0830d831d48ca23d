package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/google/uuid"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// recordScanner is satisfied by *sql.Row and *sql.Rows.
type recordScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a models.Record whose fields column holds a JSON array.
func scanRecord(sc recordScanner) (models.Record, error) {
	var r models.Record
	var kind, fieldsJSON string
	if err := sc.Scan(&r.ID, &kind, &r.UserID, &fieldsJSON, &r.CreatedAt); err != nil {
		return r, fmt.Errorf("scan record failed: %w", err)
	}
	r.Kind = models.EventKind(kind)
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return r, fmt.Errorf("decode record %s fields: %w", r.ID, err)
	}
	return r, nil
}

// encodeFields marshals record fields for the fields_json column.
func encodeFields(fields []string) (string, error) {
	if fields == nil {
		fields = []string{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode record fields: %w", err)
	}
	return string(b), nil
}

// newRecordID returns a random UUID for a record row.
func newRecordID() string {
	return uuid.NewString()
}

// scanOutboxMessage scans an OutboxMessage from sql.Rows.
func scanOutboxMessage(rows *sql.Rows) (OutboxMessage, error) {
	var m OutboxMessage
	var payloadJSON, dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := rows.Scan(
		&m.ID, &m.RecipientID, &m.Kind, &payloadJSON, &m.Status, &m.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, fmt.Errorf("scan outbox message failed: %w", err)
	}
	m.PayloadJSON = payloadJSON.String
	m.DedupeKey = dedupeKey.String
	m.LastError = lastError.String
	if nextAttemptAt.Valid {
		m.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		m.LockedAt = &lockedAt.Time
	}
	return m, nil
}

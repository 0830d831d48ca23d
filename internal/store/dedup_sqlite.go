package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time check that SQLiteStore implements DedupRepo.
var _ DedupRepo = (*SQLiteStore)(nil)
var _ DedupPruner = (*SQLiteStore)(nil)

func (s *SQLiteStore) IsDuplicate(messageID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT message_id FROM inbound_dedup WHERE message_id = ?`, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

// RecordInbound relies on INSERT OR IGNORE so concurrent webhook deliveries of
// the same message id cannot both report the message as new.
func (s *SQLiteStore) RecordInbound(messageID, senderID string) (bool, error) {
	now := time.Now()
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO inbound_dedup (message_id, sender_id, received_at) VALUES (?, ?, ?)`,
		messageID, senderID, now,
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	if n == 0 {
		slog.Debug("SQLiteStore.RecordInbound: duplicate message", "messageID", messageID, "senderID", senderID)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkProcessed(messageID string) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`,
		now, messageID,
	)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PruneInbound(before time.Time) (int, error) {
	result, err := s.db.Exec(
		`DELETE FROM inbound_dedup WHERE processed_at IS NOT NULL AND received_at < ?`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("prune inbound dedup failed: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

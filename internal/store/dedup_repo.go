// Package store provides the DedupRepo interface for inbound message deduplication.
package store

import (
	"time"
)

// DedupRecord represents an inbound message deduplication record.
type DedupRecord struct {
	MessageID   string     `json:"message_id"`
	SenderID    string     `json:"sender_id"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// DedupRepo defines the interface for inbound message deduplication.
// Messenger and Twilio both redeliver webhooks that were not acknowledged in
// time, so every inbound message id is recorded before it is handled.
type DedupRepo interface {
	// IsDuplicate checks if a message ID has already been seen.
	IsDuplicate(messageID string) (bool, error)

	// RecordInbound inserts a new inbound message record. Returns false if the
	// message was already recorded (duplicate).
	RecordInbound(messageID, senderID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for a message.
	MarkProcessed(messageID string) error
}

// DedupPruner deletes processed inbound records received before the cutoff.
// Unprocessed records are kept so a crash mid-handling still deduplicates.
type DedupPruner interface {
	PruneInbound(before time.Time) (int, error)
}

package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix followed by a random UUID with the dashes removed.
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateOutboxID generates a unique outbox message ID with "outbox_" prefix.
func GenerateOutboxID() string {
	return NewID("outbox_")
}

// GenerateThreadID generates a conversation thread ID with "t_" prefix.
func GenerateThreadID() string {
	return NewID("t_")
}

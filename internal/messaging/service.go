package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// Constants for channel-backed services.
const (
	// DefaultChannelBufferSize defines the default buffer size for receipt and inbound channels.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations.
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned by sends after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// ErrChannelFull is returned when an inbound event cannot be queued in time.
var ErrChannelFull = errors.New("inbound channel full")

// Service defines a pluggable message delivery abstraction for one chat
// platform. Inbound events reach the service through Receive and are handed to
// consumers on Responses.
type Service interface {
	// Platform names the chat platform in logs and conversation records.
	Platform() string

	// SendText sends a plain text message.
	SendText(ctx context.Context, to, text string) error

	// SendChoices sends text with a constrained set of options.
	SendChoices(ctx context.Context, to, text string, options []string) error

	// Receive queues an inbound event parsed from the platform's webhook.
	Receive(in models.Inbound) error

	// Start begins any background processing.
	Start(ctx context.Context) error

	// Stop stops background processing and closes the channels.
	Stop() error

	// Receipts returns a channel of receipt events.
	Receipts() <-chan models.Receipt

	// Responses returns a channel of inbound events.
	Responses() <-chan models.Inbound
}

// NameResolver is implemented by services that can look up a user's display name.
type NameResolver interface {
	UserName(ctx context.Context, userID string) string
}

// ReplyResolver is implemented by services that must translate a raw reply,
// such as a number typed against a numbered list, back to an option label.
type ReplyResolver interface {
	ResolveReply(from, text string) string
}

// Deliver sends reply through svc, as choices when it carries options.
func Deliver(ctx context.Context, svc Service, to string, reply models.Reply) error {
	if reply.HasOptions() {
		return svc.SendChoices(ctx, to, reply.Text, reply.Options)
	}
	return svc.SendText(ctx, to, reply.Text)
}

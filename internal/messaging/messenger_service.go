package messaging

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// MessengerService implements Service on top of the Messenger Send API.
// Options are rendered as quick replies.
type MessengerService struct {
	*channels
	client   messenger.Sender
	profiles messenger.ProfileFetcher
}

var (
	_ Service      = (*MessengerService)(nil)
	_ NameResolver = (*MessengerService)(nil)
)

// NewMessengerService wraps client. profiles may be nil, in which case user
// names are left empty.
func NewMessengerService(client messenger.Sender, profiles messenger.ProfileFetcher) *MessengerService {
	return &MessengerService{
		channels: newChannels("MessengerService"),
		client:   client,
		profiles: profiles,
	}
}

// Platform implements Service.
func (s *MessengerService) Platform() string { return messenger.PlatformName }

// Start is a no-op; inbound events arrive through the webhook.
func (s *MessengerService) Start(ctx context.Context) error { return nil }

// Stop closes the service channels.
func (s *MessengerService) Stop() error {
	s.stop()
	return nil
}

// SendText sends a plain message and emits a sent receipt.
func (s *MessengerService) SendText(ctx context.Context, to, text string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	if err := s.client.SendText(ctx, to, text); err != nil {
		slog.Error("MessengerService.SendText: send failed", "to", to, "error", err)
		s.emitReceipt(to, models.MessageStatusFailed)
		return err
	}
	s.emitReceipt(to, models.MessageStatusSent)
	return nil
}

// SendChoices sends text with one quick reply per option.
func (s *MessengerService) SendChoices(ctx context.Context, to, text string, options []string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	if err := s.client.SendQuickReplies(ctx, to, text, options); err != nil {
		slog.Error("MessengerService.SendChoices: send failed", "to", to, "error", err)
		s.emitReceipt(to, models.MessageStatusFailed)
		return err
	}
	s.emitReceipt(to, models.MessageStatusSent)
	return nil
}

// UserName returns the user's "First Last" name, or "" when it cannot be
// fetched.
func (s *MessengerService) UserName(ctx context.Context, userID string) string {
	if s.profiles == nil {
		return ""
	}
	p, err := s.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		slog.Warn("MessengerService.UserName: profile lookup failed", "userID", userID, "error", err)
		return ""
	}
	return p.FullName()
}

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
)

// phoneNumberRegex matches every non-digit character.
var phoneNumberRegex = regexp.MustCompile(`\D`)

// TwilioService implements Service using the Twilio API. Plain SMS and
// WhatsApp have no quick replies, so options are sent as a numbered list and
// numeric replies are mapped back to the option label.
type TwilioService struct {
	*channels
	client  twiliochat.Sender
	channel twiliochat.Channel

	pendingMu sync.Mutex
	pending   map[string][]string
}

var (
	_ Service       = (*TwilioService)(nil)
	_ ReplyResolver = (*TwilioService)(nil)
)

// NewTwilioService creates a TwilioService over client.
func NewTwilioService(client twiliochat.Sender, ch twiliochat.Channel) *TwilioService {
	return &TwilioService{
		channels: newChannels("TwilioService"),
		client:   client,
		channel:  ch,
		pending:  make(map[string][]string),
	}
}

// Platform implements Service.
func (s *TwilioService) Platform() string { return s.channel.Platform() }

// ValidateAndCanonicalizeRecipient normalizes a phone number to "+digits".
// It removes all non-numeric characters and requires at least 6 digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(twiliochat.StripChannelPrefix(recipient), "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	return "+" + canonical, nil
}

// Start is a no-op; inbound messages arrive through the webhook.
func (s *TwilioService) Start(ctx context.Context) error { return nil }

// Stop closes the service channels.
func (s *TwilioService) Stop() error {
	s.stop()
	return nil
}

// SendText sends a message and forgets any pending numbered options for the
// recipient.
func (s *TwilioService) SendText(ctx context.Context, to, text string) error {
	to, err := s.prepare(to)
	if err != nil {
		return err
	}
	s.setPending(to, nil)
	return s.send(ctx, to, text)
}

// SendChoices sends text followed by a numbered option list.
func (s *TwilioService) SendChoices(ctx context.Context, to, text string, options []string) error {
	to, err := s.prepare(to)
	if err != nil {
		return err
	}
	s.setPending(to, options)
	return s.send(ctx, to, FormatNumberedOptions(text, options))
}

// ResolveReply maps "2" to the second option last sent to from. Anything else
// is returned unchanged.
func (s *TwilioService) ResolveReply(from, text string) string {
	canonical, err := s.ValidateAndCanonicalizeRecipient(from)
	if err != nil {
		return text
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return text
	}
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	opts := s.pending[canonical]
	if n < 1 || n > len(opts) {
		return text
	}
	return opts[n-1]
}

func (s *TwilioService) prepare(to string) (string, error) {
	if s.isStopped() {
		return "", ErrServiceStopped
	}
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService.prepare: invalid recipient", "to", to, "error", err)
		return "", err
	}
	return canonical, nil
}

func (s *TwilioService) send(ctx context.Context, to, body string) error {
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		s.emitReceipt(to, models.MessageStatusFailed)
		return err
	}
	s.emitReceipt(to, models.MessageStatusSent)
	return nil
}

func (s *TwilioService) setPending(to string, options []string) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if len(options) == 0 {
		delete(s.pending, to)
		return
	}
	s.pending[to] = append([]string(nil), options...)
}

// FormatNumberedOptions renders options as "1. Buy" lines under text.
func FormatNumberedOptions(text string, options []string) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
	}
	b.WriteString("\n\nReply with the number of your choice.")
	return b.String()
}

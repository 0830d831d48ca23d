// Package twiliochat wraps the Twilio Messaging API for SMS and WhatsApp
// delivery, and parses Twilio's inbound webhook form.
package twiliochat

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Channel selects how Twilio addresses recipients.
type Channel string

const (
	// ChannelSMS sends plain SMS to E.164 numbers.
	ChannelSMS Channel = "sms"
	// ChannelWhatsApp prefixes both ends with "whatsapp:".
	ChannelWhatsApp Channel = "whatsapp"
)

const whatsappPrefix = "whatsapp:"

// ParseChannel maps a config string to a Channel, defaulting to SMS.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ChannelSMS:
		return ChannelSMS, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	default:
		return "", fmt.Errorf("unknown twilio channel %q", raw)
	}
}

// Platform is the name used in conversation records.
func (c Channel) Platform() string {
	if c == ChannelWhatsApp {
		return "WhatsApp"
	}
	return "SMS"
}

// Sender sends one text message.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	Channel    Channel
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending number in E.164 form, without channel prefix.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithChannel selects SMS or WhatsApp addressing.
func WithChannel(ch Channel) Option {
	return func(o *Opts) { o.Channel = ch }
}

// Client wraps the Twilio REST API.
type Client struct {
	client  *twilio.RestClient
	from    string
	channel Channel
}

var _ Sender = (*Client)(nil)

// NewClient creates a Client. Account SID, auth token and sender number are
// required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Channel: ChannelSMS}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "",
		"channel", cfg.Channel)

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{
		client:  client,
		from:    cfg.Channel.address(cfg.From),
		channel: cfg.Channel,
	}, nil
}

// Channel reports the configured channel.
func (c *Client) Channel() Channel { return c.channel }

// SendMessage sends body to the recipient's number.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(c.channel.address(to))
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Client.SendMessage: twilio send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Client.SendMessage: twilio message sent", "to", to, "sid", sid)
	return nil
}

func (c Channel) address(number string) string {
	number = StripChannelPrefix(number)
	if c == ChannelWhatsApp {
		return whatsappPrefix + number
	}
	return number
}

// StripChannelPrefix removes a "whatsapp:" prefix if present.
func StripChannelPrefix(addr string) string {
	return strings.TrimPrefix(strings.TrimSpace(addr), whatsappPrefix)
}

// ParseInbound converts a Twilio webhook form into an Inbound. It fails when
// From or Body is missing.
func ParseInbound(form url.Values, ch Channel) (models.Inbound, error) {
	from := StripChannelPrefix(form.Get("From"))
	body := strings.TrimSpace(form.Get("Body"))
	if from == "" || body == "" {
		return models.Inbound{}, fmt.Errorf("twilio webhook missing From or Body")
	}
	return models.Inbound{
		Platform:  ch.Platform(),
		MessageID: form.Get("MessageSid"),
		SenderID:  from,
		Kind:      models.InboundKindText,
		Text:      body,
		Time:      time.Now().Unix(),
	}, nil
}

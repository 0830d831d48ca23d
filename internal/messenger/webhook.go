package messenger

import (
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// PlatformName identifies Messenger in logs and conversation records.
const PlatformName = "Facebook"

// WebhookPayload is the body Facebook posts to the page webhook.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the events delivered for one page.
type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

// Event is one messaging event.
type Event struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

// Party is a sender or recipient reference.
type Party struct {
	ID string `json:"id"`
}

// Message is an inbound message.
type Message struct {
	Mid        string      `json:"mid"`
	Text       string      `json:"text"`
	IsEcho     bool        `json:"is_echo,omitempty"`
	QuickReply *QuickReply `json:"quick_reply,omitempty"`
}

// QuickReply carries the payload of a tapped quick reply.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Postback is a button or persistent menu click.
type Postback struct {
	Mid     string `json:"mid,omitempty"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// ParseWebhook decodes body and converts every usable event to an Inbound.
// Echoes, events without a sender and events with neither text nor payload
// are skipped. A non-page object yields no events.
func ParseWebhook(body []byte) ([]models.Inbound, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if p.Object != "page" {
		return nil, nil
	}

	var out []models.Inbound
	for _, entry := range p.Entry {
		for _, ev := range entry.Messaging {
			if in, ok := ev.toInbound(); ok {
				out = append(out, in)
			}
		}
	}
	return out, nil
}

func (ev Event) toInbound() (models.Inbound, bool) {
	if ev.Sender.ID == "" {
		return models.Inbound{}, false
	}
	in := models.Inbound{Platform: PlatformName, SenderID: ev.Sender.ID, Time: ev.Timestamp}

	switch {
	case ev.Message != nil:
		if ev.Message.IsEcho {
			return models.Inbound{}, false
		}
		in.MessageID = ev.Message.Mid
		in.Text = ev.Message.Text
		if ev.Message.QuickReply != nil {
			in.Kind = models.InboundKindQuickReply
			in.Payload = ev.Message.QuickReply.Payload
			return in, true
		}
		if ev.Message.Text == "" {
			return models.Inbound{}, false
		}
		in.Kind = models.InboundKindText
		return in, true
	case ev.Postback != nil:
		in.Kind = models.InboundKindPostback
		in.MessageID = ev.Postback.Mid
		in.Text = ev.Postback.Title
		in.Payload = ev.Postback.Payload
		return in, in.Payload != ""
	default:
		return models.Inbound{}, false
	}
}

// Verify checks a subscription handshake. It returns the challenge to echo
// and true when mode is "subscribe" and token matches expected.
func Verify(mode, token, challenge, expected string) (string, bool) {
	if mode != "subscribe" || expected == "" || token != expected {
		return "", false
	}
	return challenge, true
}

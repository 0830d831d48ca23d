package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/store"
)

// Outbox message kinds.
const (
	OutboxKindText    = "text"
	OutboxKindChoices = "choices"
)

// OutboxPayload is the JSON body stored for each queued reply.
type OutboxPayload struct {
	Platform string   `json:"platform"`
	Text     string   `json:"text"`
	Options  []string `json:"options,omitempty"`
}

// OutboxService queues sends in a durable outbox instead of calling the
// platform directly. A store.OutboxSender built with NewOutboxSendFunc
// performs the delivery and retries failures.
type OutboxService struct {
	Service
	repo store.OutboxRepo
}

// NewOutboxService wraps inner so its sends go through repo.
func NewOutboxService(inner Service, repo store.OutboxRepo) *OutboxService {
	return &OutboxService{Service: inner, repo: repo}
}

// Unwrap returns the wrapped service.
func (s *OutboxService) Unwrap() Service { return s.Service }

// SendText queues a plain message.
func (s *OutboxService) SendText(ctx context.Context, to, text string) error {
	return s.enqueue(to, OutboxKindText, OutboxPayload{Platform: s.Platform(), Text: text})
}

// SendChoices queues a message with options.
func (s *OutboxService) SendChoices(ctx context.Context, to, text string, options []string) error {
	return s.enqueue(to, OutboxKindChoices, OutboxPayload{Platform: s.Platform(), Text: text, Options: options})
}

func (s *OutboxService) enqueue(to, kind string, p OutboxPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	id, err := s.repo.EnqueueOutboxMessage(to, kind, string(data), "")
	if err != nil {
		slog.Error("OutboxService.enqueue: failed to queue reply", "to", to, "kind", kind, "error", err)
		return fmt.Errorf("enqueue reply for %s: %w", to, err)
	}
	slog.Debug("OutboxService.enqueue: reply queued", "id", id, "to", to, "kind", kind)
	return nil
}

// NewOutboxSendFunc returns a send callback that delivers queued replies
// through the service registered for the payload's platform.
func NewOutboxSendFunc(services ...Service) store.OutboxSendFunc {
	byPlatform := make(map[string]Service, len(services))
	for _, svc := range services {
		byPlatform[svc.Platform()] = unwrap(svc)
	}
	return func(ctx context.Context, msg store.OutboxMessage) error {
		var p OutboxPayload
		if err := json.Unmarshal([]byte(msg.PayloadJSON), &p); err != nil {
			return fmt.Errorf("decode outbox payload %s: %w", msg.ID, err)
		}
		svc, ok := byPlatform[p.Platform]
		if !ok {
			return fmt.Errorf("no service for platform %q", p.Platform)
		}
		return Deliver(ctx, svc, msg.RecipientID, models.Reply{Text: p.Text, Options: p.Options})
	}
}

// unwrap peels decorators off svc.
func unwrap(svc Service) Service {
	for {
		w, ok := svc.(interface{ Unwrap() Service })
		if !ok {
			return svc
		}
		svc = w.Unwrap()
	}
}

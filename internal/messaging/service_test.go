package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
)

func TestMessengerService_SendAndReceipts(t *testing.T) {
	client := messenger.NewMockClient()
	svc := NewMessengerService(client, nil)
	ctx := context.Background()

	if err := Deliver(ctx, svc, "u1", models.Reply{Text: "Buy or rent?", Options: []string{"Buy", "Rent"}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := Deliver(ctx, svc, "u1", models.Reply{Text: "Thanks"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	msgs := client.Messages()
	if len(msgs) != 2 || len(msgs[0].Options) != 2 || msgs[1].Options != nil {
		t.Fatalf("unexpected messages %+v", msgs)
	}

	select {
	case r := <-svc.Receipts():
		if r.To != "u1" || r.Status != models.MessageStatusSent {
			t.Errorf("unexpected receipt %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a receipt")
	}

	if name := svc.UserName(ctx, "u1"); name != "" {
		t.Errorf("UserName without profiles = %q", name)
	}
}

func TestMessengerService_Stop(t *testing.T) {
	svc := NewMessengerService(messenger.NewMockClient(), nil)
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if err := svc.SendText(context.Background(), "u1", "hi"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("SendText after Stop = %v", err)
	}
	if err := svc.Receive(models.Inbound{SenderID: "u1"}); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("Receive after Stop = %v", err)
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("responses channel should be closed")
	}
}

func TestTwilioService_ValidateAndCanonicalizeRecipient(t *testing.T) {
	svc := NewTwilioService(twiliochat.NewMockClient(), twiliochat.ChannelSMS)
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+1 (555) 123-4567", "+15551234567", false},
		{"whatsapp:+15551234567", "+15551234567", false},
		{"", "", true},
		{"abc", "", true},
		{"12345", "", true},
	}
	for _, tt := range tests {
		got, err := svc.ValidateAndCanonicalizeRecipient(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTwilioService_ResolveReply(t *testing.T) {
	client := twiliochat.NewMockClient()
	svc := NewTwilioService(client, twiliochat.ChannelWhatsApp)
	ctx := context.Background()
	to := "+15551234567"

	if err := svc.SendChoices(ctx, to, "Buy or rent?", []string{"Buy", "Rent"}); err != nil {
		t.Fatalf("SendChoices: %v", err)
	}
	if got := client.Messages()[0].Body; got != "Buy or rent?\n\n1. Buy\n2. Rent\n\nReply with the number of your choice." {
		t.Errorf("body = %q", got)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"1", "Buy"},
		{" 2 ", "Rent"},
		{"3", "3"},
		{"0", "0"},
		{"rent", "rent"},
	}
	for _, tt := range tests {
		if got := svc.ResolveReply(to, tt.in); got != tt.want {
			t.Errorf("ResolveReply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if err := svc.SendText(ctx, to, "What location are you considering?"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got := svc.ResolveReply(to, "1"); got != "1" {
		t.Errorf("free-text question must clear numbered options, got %q", got)
	}
}

// fakeOutbox is an in-memory store.OutboxRepo.
type fakeOutbox struct {
	msgs []store.OutboxMessage
	err  error
}

func (f *fakeOutbox) EnqueueOutboxMessage(recipientID, kind, payloadJSON, dedupeKey string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id := fmt.Sprintf("outbox_%d", len(f.msgs)+1)
	f.msgs = append(f.msgs, store.OutboxMessage{ID: id, RecipientID: recipientID, Kind: kind, PayloadJSON: payloadJSON})
	return id, nil
}
func (f *fakeOutbox) ClaimDueOutboxMessages(now time.Time, limit int) ([]store.OutboxMessage, error) {
	return f.msgs, nil
}
func (f *fakeOutbox) MarkOutboxMessageSent(id string) error { return nil }
func (f *fakeOutbox) FailOutboxMessage(id, errMsg string, next time.Time) error { return nil }
func (f *fakeOutbox) GiveUpOutboxMessage(id, errMsg string) error { return nil }
func (f *fakeOutbox) RequeueStaleSendingMessages(staleBefore time.Time) (int, error) {
	return 0, nil
}

var _ store.OutboxRepo = (*fakeOutbox)(nil)

func TestOutboxService_QueuesAndSendFuncDelivers(t *testing.T) {
	client := messenger.NewMockClient()
	inner := NewMessengerService(client, nil)
	repo := &fakeOutbox{}
	svc := NewOutboxService(inner, repo)
	ctx := context.Background()

	if err := Deliver(ctx, svc, "u1", models.Reply{Text: "Buy or rent?", Options: []string{"Buy", "Rent"}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(client.Messages()) != 0 {
		t.Fatal("outbox service must not send directly")
	}
	if len(repo.msgs) != 1 || repo.msgs[0].Kind != OutboxKindChoices {
		t.Fatalf("unexpected outbox %+v", repo.msgs)
	}
	var p OutboxPayload
	if err := json.Unmarshal([]byte(repo.msgs[0].PayloadJSON), &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Platform != messenger.PlatformName || len(p.Options) != 2 {
		t.Errorf("unexpected payload %+v", p)
	}

	send := NewOutboxSendFunc(svc)
	if err := send(ctx, repo.msgs[0]); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs := client.Messages()
	if len(msgs) != 1 || msgs[0].To != "u1" || msgs[0].Text != "Buy or rent?" {
		t.Errorf("unexpected delivery %+v", msgs)
	}
}

func TestOutboxSendFunc_UnknownPlatform(t *testing.T) {
	send := NewOutboxSendFunc(NewMessengerService(messenger.NewMockClient(), nil))
	err := send(context.Background(), store.OutboxMessage{ID: "x", RecipientID: "u1", PayloadJSON: `{"platform":"Telegram","text":"hi"}`})
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestOutboxService_EnqueueError(t *testing.T) {
	svc := NewOutboxService(NewMessengerService(messenger.NewMockClient(), nil), &fakeOutbox{err: errors.New("db down")})
	if err := svc.SendText(context.Background(), "u1", "hi"); err == nil {
		t.Fatal("expected enqueue error")
	}
}

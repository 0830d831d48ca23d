package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/botconfig"
	"github.com/BTreeMap/SwiftShowings/internal/flow"
	"github.com/BTreeMap/SwiftShowings/internal/genai"
	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
)

// mockAssistant records questions and returns a canned answer.
type mockAssistant struct {
	mu        sync.Mutex
	questions []string
	answer    string
	err       error
}

func (m *mockAssistant) Ask(ctx context.Context, userID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, text)
	if m.err != nil {
		return genai.FallbackReply, m.err
	}
	return m.answer, nil
}

type handlerFixture struct {
	handler   *ResponseHandler
	client    *messenger.MockClient
	records   *store.InMemoryStore
	assistant *mockAssistant
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	records := store.NewInMemoryStore()
	persister := store.NewRecordPersister(records)
	dispatcher := flow.NewDispatcher(session.NewMemoryStore(), flow.NewCatalog(), flow.WithPersister(persister))

	client := messenger.NewMockClient()
	client.Profiles["u1"] = messenger.Profile{FirstName: "Jane", LastName: "Doe"}
	svc := NewMessengerService(client, client)
	assistant := &mockAssistant{answer: "Assistant answer"}

	h := NewResponseHandler(svc, dispatcher,
		WithAssistant(assistant),
		WithDedup(records),
		WithConversationLogger(persister),
	)
	return &handlerFixture{handler: h, client: client, records: records, assistant: assistant}
}

func (f *handlerFixture) lastSent(t *testing.T) messenger.SentMessage {
	t.Helper()
	msgs := f.client.Messages()
	if len(msgs) == 0 {
		t.Fatal("no message sent")
	}
	return msgs[len(msgs)-1]
}

func text(uid, mid, body string) models.Inbound {
	return models.Inbound{Platform: messenger.PlatformName, MessageID: mid, SenderID: uid, Kind: models.InboundKindText, Text: body}
}

func quick(uid, title string) models.Inbound {
	return models.Inbound{Platform: messenger.PlatformName, SenderID: uid, Kind: models.InboundKindQuickReply, Text: title, Payload: string(models.PayloadFor(title))}
}

func postback(uid, payload string) models.Inbound {
	return models.Inbound{Platform: messenger.PlatformName, SenderID: uid, Kind: models.InboundKindPostback, Payload: payload}
}

func TestResponseHandler_GetStartedSendsWelcomeMenu(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.HandleInbound(context.Background(), postback("u1", "GET_STARTED"))

	got := f.lastSent(t)
	want := botconfig.Default()
	if got.Text != want.Welcome {
		t.Errorf("text = %q", got.Text)
	}
	if strings.Join(got.Options, ",") != "Find Home,Get Help,Save Money,Learn More" {
		t.Errorf("options = %v", got.Options)
	}

	rows, _ := f.records.ListRecords(context.Background(), models.EventKindConversation, 10)
	if len(rows) != 1 {
		t.Fatalf("expected 1 conversation row, got %d", len(rows))
	}
	if rows[0].Fields[2] != "Jane Doe" || rows[0].Fields[3] != "Get Started" || rows[0].Fields[5] != "Facebook" {
		t.Errorf("unexpected row %q", rows[0].Fields)
	}
	if !strings.HasPrefix(rows[0].Fields[6], "t_") {
		t.Errorf("thread id = %q", rows[0].Fields[6])
	}
}

func TestResponseHandler_FindHomeBuyFlow(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	f.handler.HandleInbound(ctx, postback("u1", "FIND_HOME"))
	if got := f.lastSent(t); got.Text != "Great! Are you looking to buy or rent?" {
		t.Fatalf("router prompt = %q", got.Text)
	}

	f.handler.HandleInbound(ctx, quick("u1", "Buy"))
	if got := f.lastSent(t); got.Text != "What type of home are you interested in?" {
		t.Fatalf("buy step 1 = %q", got.Text)
	}

	steps := []struct {
		in   models.Inbound
		want string
	}{
		{quick("u1", "Condo"), "What is your budget range?"},
		{quick("u1", "$200k-$300k"), "What location are you considering? Please type the city and state."},
		{text("u1", "", "Austin, TX"), "Do you have financing or need assistance?"},
	}
	for _, s := range steps {
		f.handler.HandleInbound(ctx, s.in)
		if got := f.lastSent(t); got.Text != s.want {
			t.Fatalf("after %q got %q, want %q", s.in.Text, got.Text, s.want)
		}
	}

	f.handler.HandleInbound(ctx, quick("u1", "Yes, I'm pre-approved"))
	if got := f.lastSent(t); !strings.Contains(got.Text, "Condo in Austin, TX within budget $200k-$300k") {
		t.Fatalf("final = %q", got.Text)
	}

	homes, _ := f.records.ListRecords(ctx, models.EventKindHomePreference, 10)
	if len(homes) != 1 {
		t.Fatalf("expected 1 home record, got %d", len(homes))
	}
	fields := homes[0].Fields
	if fields[1] != "u1" || fields[2] != "Jane Doe" || fields[3] != "Buy" || fields[7] != "Yes, I'm pre-approved" {
		t.Errorf("unexpected home record %q", fields)
	}

	rows, _ := f.records.ListRecords(ctx, models.EventKindConversation, 100)
	var selected bool
	for _, r := range rows {
		if r.Fields[3] == "Selected: BUY" {
			selected = true
		}
	}
	if !selected {
		t.Error("expected a 'Selected: BUY' conversation row")
	}

	f.handler.HandleInbound(ctx, text("u1", "", "Do you have pools?"))
	if got := f.lastSent(t); got.Text != "Assistant answer" {
		t.Errorf("idle user should reach the assistant, got %q", got.Text)
	}
}

func TestResponseHandler_IdleTextGoesToAssistant(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.HandleInbound(context.Background(), text("u2", "m1", "hello there"))

	if got := f.lastSent(t); got.Text != "Assistant answer" || len(got.Options) != 0 {
		t.Errorf("unexpected reply %+v", got)
	}
	if len(f.assistant.questions) != 1 || f.assistant.questions[0] != "hello there" {
		t.Errorf("assistant questions = %v", f.assistant.questions)
	}
}

func TestResponseHandler_AssistantErrorSendsFallback(t *testing.T) {
	f := newHandlerFixture(t)
	f.assistant.err = errors.New("rate limited")
	f.handler.HandleInbound(context.Background(), text("u2", "", "hello there"))

	if got := f.lastSent(t); got.Text != genai.FallbackReply {
		t.Errorf("got %q, want fallback", got.Text)
	}
}

func TestResponseHandler_LearnMore(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.HandleInbound(context.Background(), quick("u1", "Learn More"))
	if got := f.lastSent(t); got.Text != botconfig.Default().LearnMore {
		t.Errorf("got %q", got.Text)
	}
}

func TestResponseHandler_DuplicateMessageDropped(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()

	f.handler.HandleInbound(ctx, text("u1", "mid.1", "hello"))
	f.handler.HandleInbound(ctx, text("u1", "mid.1", "hello"))

	if n := len(f.client.Messages()); n != 1 {
		t.Errorf("expected 1 reply for a redelivered message, got %d", n)
	}
}

func TestResponseHandler_StartConsumesService(t *testing.T) {
	f := newHandlerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.handler.Start(ctx)
	if err := f.handler.svc.Receive(postback("u1", "GET_HELP")); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := f.client.Messages(); len(msgs) == 1 {
			if msgs[0].Text != "How can we assist you today?" {
				t.Fatalf("got %q", msgs[0].Text)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("inbound event was not processed")
}

func TestResponseHandler_TwilioNumericReply(t *testing.T) {
	records := store.NewInMemoryStore()
	dispatcher := flow.NewDispatcher(session.NewMemoryStore(), flow.NewCatalog(), flow.WithPersister(store.NewRecordPersister(records)))
	client := twiliochat.NewMockClient()
	svc := NewTwilioService(client, twiliochat.ChannelSMS)
	h := NewResponseHandler(svc, dispatcher)
	ctx := context.Background()

	sms := func(body string) models.Inbound {
		return models.Inbound{Platform: "SMS", SenderID: "+15551234567", Kind: models.InboundKindText, Text: body}
	}

	if _, err := dispatcher.ForceStart(ctx, "+15551234567", models.FlowSaveMoney); err != nil {
		t.Fatalf("ForceStart: %v", err)
	}
	// Prime the numbered options the way a delivered router prompt would.
	if err := svc.SendChoices(ctx, "+15551234567", "What type of savings are you looking for?",
		[]string{flow.CategoryMortgage, flow.CategoryUtility, flow.CategoryInsurance, flow.CategoryTax}); err != nil {
		t.Fatalf("SendChoices: %v", err)
	}

	h.HandleInbound(ctx, sms("4"))

	msgs := client.Messages()
	last := msgs[len(msgs)-1].Body
	if !strings.HasPrefix(last, "Homeownership comes with several valuable tax benefits.") {
		t.Fatalf("expected tax flow prompt, got %q", last)
	}
	if !strings.Contains(last, "1. Yes, connect me") || !strings.Contains(last, "2. No thanks") {
		t.Errorf("expected numbered options, got %q", last)
	}

	h.HandleInbound(ctx, sms("1"))
	rows, _ := records.ListRecords(ctx, models.EventKindMoneyRequest, 10)
	if len(rows) != 1 {
		t.Fatalf("expected 1 money record, got %d", len(rows))
	}
	if rows[0].Fields[4] != "Tax Benefits" || !strings.Contains(rows[0].Fields[5], "Yes, connect me") {
		t.Errorf("unexpected money record %q", rows[0].Fields)
	}
}

func TestResponseHandler_ThreadIDStable(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.handler.ThreadID("u1")
	if a != f.handler.ThreadID("u1") {
		t.Error("thread id changed between calls")
	}
	if a == f.handler.ThreadID("u2") {
		t.Error("different users share a thread id")
	}
}

func TestResponseHandler_ThreadIDsBounded(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	client := messenger.NewMockClient()
	h := NewResponseHandler(NewMessengerService(client, client), nil,
		WithThreadBounds(time.Hour, 3),
		WithThreadClock(func() time.Time { return now }),
	)

	first := h.ThreadID("u0")
	for i := 1; i < 10; i++ {
		h.ThreadID(fmt.Sprintf("u%d", i))
	}
	if got := h.ThreadCount(); got != 3 {
		t.Errorf("expected 3 thread ids kept, got %d", got)
	}

	latest := h.ThreadID("u9")
	now = now.Add(30 * time.Minute)
	if h.ThreadID("u9") != latest {
		t.Error("active user's thread id changed")
	}

	now = now.Add(2 * time.Hour)
	if h.ThreadCount() != 0 {
		t.Errorf("expected idle thread ids to expire, %d left", h.ThreadCount())
	}
	if h.ThreadID("u0") == first {
		t.Error("evicted user should start a new thread")
	}
}

func TestShard(t *testing.T) {
	for _, uid := range []string{"a", "u1", "+15551234567"} {
		s := shard(uid, 4)
		if s < 0 || s >= 4 {
			t.Errorf("shard(%q) = %d out of range", uid, s)
		}
		if shard(uid, 4) != s {
			t.Errorf("shard(%q) not stable", uid)
		}
	}
}

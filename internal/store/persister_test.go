package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

func TestRecordPersister_Persist(t *testing.T) {
	mem := NewInMemoryStore()
	p := NewRecordPersister(mem)
	ctx := context.Background()

	fields := []string{"2024-03-01 12:00:00", "u1", "Jane Doe", "Help Request", "Other", "Question: hi", "Pending", "", ""}
	if err := p.Persist(ctx, models.EventKindHelpRequest, fields); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	recs, _ := mem.ListRecords(ctx, models.EventKindHelpRequest, 10)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].UserID != "u1" || recs[0].ID == "" || recs[0].CreatedAt.IsZero() {
		t.Errorf("unexpected record metadata: %+v", recs[0])
	}
}

func TestRecordPersister_RejectsUnknownKind(t *testing.T) {
	p := NewRecordPersister(NewInMemoryStore())
	err := p.Persist(context.Background(), "spreadsheet", []string{"x"})
	if !errors.Is(err, models.ErrInvalidEventKind) {
		t.Errorf("expected ErrInvalidEventKind, got %v", err)
	}
}

func TestRecordPersister_LogConversation(t *testing.T) {
	mem := NewInMemoryStore()
	p := NewRecordPersister(mem)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	entry := models.ConversationEntry{
		UserID:   "psid-9",
		UserName: "Sam Lee",
		Message:  "Get Started",
		Response: "Welcome",
		Platform: "facebook",
		ThreadID: "t_abc",
	}
	if err := p.LogConversation(context.Background(), entry); err != nil {
		t.Fatalf("LogConversation: %v", err)
	}

	recs, _ := mem.ListRecords(context.Background(), models.EventKindConversation, 10)
	if len(recs) != 1 {
		t.Fatalf("expected 1 conversation record, got %d", len(recs))
	}
	want := []string{"2024-03-01 09:30:00", "psid-9", "Sam Lee", "Get Started", "Welcome", "facebook", "t_abc"}
	for i, w := range want {
		if recs[0].Fields[i] != w {
			t.Errorf("field %d = %q, want %q", i, recs[0].Fields[i], w)
		}
	}
}

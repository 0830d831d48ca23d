package models

import (
	"errors"
	"testing"
	"time"
)

func TestReplyHasOptions(t *testing.T) {
	if (Reply{Text: "free"}).HasOptions() {
		t.Error("reply without options should be free text")
	}
	if !(Reply{Text: "pick", Options: []string{"A"}}).HasOptions() {
		t.Error("reply with options should be a constrained choice")
	}
}

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    EventKind
		wantErr bool
	}{
		{"home_preference", EventKindHomePreference, false},
		{" HELP_REQUEST ", EventKindHelpRequest, false},
		{"money_request", EventKindMoneyRequest, false},
		{"conversation", EventKindConversation, false},
		{"receipts", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseEventKind(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEventKind) {
					t.Fatalf("expected ErrInvalidEventKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConversationEntryFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)
	entry := ConversationEntry{
		UserID:   "u1",
		UserName: "Ada Lovelace",
		Message:  "hi",
		Response: "hello",
		Platform: "Facebook",
		ThreadID: "thread_1",
		Time:     ts,
	}
	fields := entry.Fields()
	want := []string{"2024-05-01 13:04:05", "u1", "Ada Lovelace", "hi", "hello", "Facebook", "thread_1"}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d: expected %q, got %q", i, want[i], fields[i])
		}
	}
}

func TestPayloadFor(t *testing.T) {
	tests := map[string]Payload{
		"Find Home":             PayloadFindHome,
		"Buy":                   PayloadBuy,
		"Maintenance & Repairs": "MAINTENANCE_&_REPAIRS",
		"Yes, connect me":       "YES,_CONNECT_ME",
	}
	for label, want := range tests {
		if got := PayloadFor(label); got != want {
			t.Errorf("PayloadFor(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestAPIResponseBuilders(t *testing.T) {
	if r := Success(42); r.Status != string(APIStatusOK) || r.Result != 42 {
		t.Errorf("unexpected success response: %+v", r)
	}
	if r := Error("boom"); r.Status != string(APIStatusError) || r.Message != "boom" {
		t.Errorf("unexpected error response: %+v", r)
	}
	if r := Recorded(); r.Status != string(APIStatusRecorded) {
		t.Errorf("unexpected recorded response: %+v", r)
	}
}

package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/store"
)

// mockTB records failures instead of failing the enclosing test.
type mockTB struct {
	testing.TB
	failed bool
}

func (m *mockTB) Helper() {}
func (m *mockTB) Errorf(format string, args ...interface{}) { m.failed = true }

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		expected int
		actual   int
		wantFail bool
	}{
		{"match", http.StatusOK, http.StatusOK, false},
		{"mismatch", http.StatusOK, http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockTB{}
			AssertHTTPStatus(mock, tt.expected, tt.actual, "test")
			if mock.failed != tt.wantFail {
				t.Errorf("failed = %v, want %v", mock.failed, tt.wantFail)
			}
		})
	}
}

func TestAssertJSONStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.WriteString(`{"status":"ok","message":"done"}`)
	resp := AssertJSONStatus(t, rr, models.APIStatusOK)
	if resp.Message != "done" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/setup", map[string]string{"a": "b"})
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", req.Header.Get("Content-Type"))
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "{\"a\":\"b\"}\n" {
		t.Errorf("body = %q", body)
	}

	empty := NewJSONRequest(t, http.MethodGet, "/health", nil)
	if body, _ := io.ReadAll(empty.Body); len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestNewFormRequest(t *testing.T) {
	req := NewFormRequest("/twilio/webhook", url.Values{"Body": {"hi"}})
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if req.PostForm.Get("Body") != "hi" {
		t.Errorf("Body = %q", req.PostForm.Get("Body"))
	}
}

func TestSeedRecordsAndCount(t *testing.T) {
	repo := store.NewInMemoryStore()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	SeedRecords(t, repo, "u1", base, models.EventKindHelpRequest, models.EventKindConversation, models.EventKindConversation)

	AssertRecordCount(t, repo, "", 3, "all")
	got := AssertRecordCount(t, repo, models.EventKindConversation, 2, "conversation")
	if len(got) == 2 && !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Error("records should be newest first")
	}
}

func TestEventually(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		n.Store(1)
	}()
	Eventually(t, time.Second, func() bool { return n.Load() == 1 }, "flag set")
}

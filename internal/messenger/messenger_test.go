package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	Method string
	Path   string
	Token  string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := capturedRequest{Method: r.Method, Path: r.URL.Path, Token: r.URL.Query().Get("access_token")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &c.Body); err != nil {
				t.Errorf("invalid JSON body: %v", err)
			}
		}
		captured = append(captured, c)
		w.WriteHeader(status)
		io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(WithPageAccessToken("page-token"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without page access token")
	}
}

func TestClient_SendText(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"recipient_id":"123","message_id":"mid.1"}`)
	c := newTestClient(t, srv)

	if err := c.SendText(context.Background(), "123", "Hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]
	if req.Method != http.MethodPost || req.Path != "/v17.0/me/messages" {
		t.Errorf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Token != "page-token" {
		t.Errorf("access token = %q", req.Token)
	}
	if req.Body["messaging_type"] != "RESPONSE" {
		t.Errorf("messaging_type = %v", req.Body["messaging_type"])
	}
	msg := req.Body["message"].(map[string]interface{})
	if msg["text"] != "Hello" {
		t.Errorf("text = %v", msg["text"])
	}
	if _, ok := msg["quick_replies"]; ok {
		t.Error("plain text must not carry quick replies")
	}
}

func TestClient_SendQuickReplies(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv)

	if err := c.SendQuickReplies(context.Background(), "123", "Buy or rent?", []string{"Buy", "Tenant Rights"}); err != nil {
		t.Fatalf("SendQuickReplies: %v", err)
	}

	msg := (*captured)[0].Body["message"].(map[string]interface{})
	replies := msg["quick_replies"].([]interface{})
	if len(replies) != 2 {
		t.Fatalf("expected 2 quick replies, got %d", len(replies))
	}
	second := replies[1].(map[string]interface{})
	if second["title"] != "Tenant Rights" || second["payload"] != "TENANT_RIGHTS" || second["content_type"] != "text" {
		t.Errorf("unexpected quick reply %v", second)
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid OAuth access token."}}`)
	c := newTestClient(t, srv)

	err := c.SendText(context.Background(), "123", "Hello")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("code = %d", httpErr.Code)
	}
}

func TestClient_GetUserProfile(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"first_name":"Jane","last_name":"Doe","id":"123"}`)
	c := newTestClient(t, srv)

	p, err := c.GetUserProfile(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if p.FullName() != "Jane Doe" {
		t.Errorf("FullName = %q", p.FullName())
	}
	if (*captured)[0].Method != http.MethodGet || (*captured)[0].Path != "/v17.0/123" {
		t.Errorf("unexpected request %+v", (*captured)[0])
	}
}

func TestClient_SetupProfile(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"result":"success"}`)
	c := newTestClient(t, srv)

	err := c.SetupProfile(context.Background(), ProfileSettings{
		GetStartedPayload: "GET_STARTED",
		Greeting:          "Welcome!",
		Menu:              []MenuItem{{Title: "Find Home", Payload: "FIND_HOME"}},
	})
	if err != nil {
		t.Fatalf("SetupProfile: %v", err)
	}

	req := (*captured)[0]
	if req.Path != "/v17.0/me/messenger_profile" {
		t.Errorf("path = %q", req.Path)
	}
	gs := req.Body["get_started"].(map[string]interface{})
	if gs["payload"] != "GET_STARTED" {
		t.Errorf("get_started = %v", gs)
	}
	menu := req.Body["persistent_menu"].([]interface{})[0].(map[string]interface{})
	cta := menu["call_to_actions"].([]interface{})[0].(map[string]interface{})
	if cta["type"] != "postback" || cta["payload"] != "FIND_HOME" {
		t.Errorf("call_to_actions = %v", cta)
	}
}

func TestProfile_FullName(t *testing.T) {
	tests := []struct {
		p    Profile
		want string
	}{
		{Profile{FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{Profile{FirstName: "Jane"}, "Jane"},
		{Profile{}, ""},
	}
	for _, tt := range tests {
		if got := tt.p.FullName(); got != tt.want {
			t.Errorf("FullName(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

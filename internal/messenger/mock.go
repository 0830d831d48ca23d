package messenger

import (
	"context"
	"sync"
)

// SentMessage is a message recorded by MockClient.
type SentMessage struct {
	To      string
	Text    string
	Options []string
}

// MockClient records outbound calls instead of talking to Facebook.
type MockClient struct {
	mu       sync.Mutex
	Sent     []SentMessage
	Seen     []string
	Profiles map[string]Profile
	Settings []ProfileSettings
	Err      error
}

var (
	_ Sender         = (*MockClient)(nil)
	_ ProfileFetcher = (*MockClient)(nil)
)

// NewMockClient returns an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{Profiles: make(map[string]Profile)}
}

func (m *MockClient) SendText(ctx context.Context, recipientID, text string) error {
	return m.record(recipientID, text, nil)
}

func (m *MockClient) SendQuickReplies(ctx context.Context, recipientID, text string, options []string) error {
	return m.record(recipientID, text, append([]string(nil), options...))
}

func (m *MockClient) MarkSeen(ctx context.Context, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seen = append(m.Seen, recipientID)
	return nil
}

func (m *MockClient) GetUserProfile(ctx context.Context, userID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Profiles[userID], nil
}

func (m *MockClient) SetupProfile(ctx context.Context, s ProfileSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Settings = append(m.Settings, s)
	return nil
}

// Messages returns a copy of everything sent so far.
func (m *MockClient) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}

func (m *MockClient) record(to, text string, options []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Text: text, Options: options})
	return nil
}

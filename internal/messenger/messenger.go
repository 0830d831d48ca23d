// Package messenger is a small client for the Facebook Messenger Send and
// Messenger Profile APIs, plus the webhook payload types the page receives.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

const (
	// DefaultAPIVersion is the Graph API version requests are sent to.
	DefaultAPIVersion = "v17.0"
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.facebook.com"
	// DefaultTimeout bounds a single Graph API request.
	DefaultTimeout = 10 * time.Second
)

// Sender delivers outbound Messenger messages.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
	SendQuickReplies(ctx context.Context, recipientID, text string, options []string) error
	MarkSeen(ctx context.Context, recipientID string) error
}

// ProfileFetcher resolves a page-scoped user id to a display name.
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, userID string) (Profile, error)
}

// Profile is the subset of user profile fields the bot reads.
type Profile struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// MenuItem is one persistent menu postback button.
type MenuItem struct {
	Title   string
	Payload string
}

// ProfileSettings is pushed to the page's Messenger profile.
type ProfileSettings struct {
	GetStartedPayload string
	Greeting          string
	Menu              []MenuItem
}

// HTTPError is returned when the Graph API answers with a non-200 status.
type HTTPError struct {
	URL     string
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("graph request to %s failed with code %d: %s", e.URL, e.Code, e.Message)
}

// Opts holds configuration for the Messenger client.
type Opts struct {
	PageAccessToken string
	APIVersion      string
	BaseURL         string
	HTTPClient      *http.Client
}

// Option configures the Messenger client.
type Option func(*Opts)

// WithPageAccessToken sets the page token used on every request.
func WithPageAccessToken(token string) Option {
	return func(o *Opts) { o.PageAccessToken = token }
}

// WithAPIVersion overrides DefaultAPIVersion.
func WithAPIVersion(version string) Option {
	return func(o *Opts) { o.APIVersion = version }
}

// WithBaseURL points the client at another host, mainly for tests.
func WithBaseURL(base string) Option {
	return func(o *Opts) { o.BaseURL = base }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(cl *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = cl }
}

// Client talks to the Graph API on behalf of one page.
type Client struct {
	token   string
	baseURL string
	cl      *http.Client
}

// Compile-time checks.
var (
	_ Sender         = (*Client)(nil)
	_ ProfileFetcher = (*Client)(nil)
)

// NewClient creates a Client. A page access token is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{APIVersion: DefaultAPIVersion, BaseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PageAccessToken == "" {
		return nil, fmt.Errorf("page access token must be provided")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		}
	}
	return &Client{
		token:   cfg.PageAccessToken,
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIVersion, "/"),
		cl:      cfg.HTTPClient,
	}, nil
}

type recipient struct {
	ID string `json:"id"`
}

type quickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

type outboundMessage struct {
	Text         string       `json:"text"`
	QuickReplies []quickReply `json:"quick_replies,omitempty"`
}

type sendRequest struct {
	Recipient     recipient        `json:"recipient"`
	MessagingType string           `json:"messaging_type,omitempty"`
	Message       *outboundMessage `json:"message,omitempty"`
	SenderAction  string           `json:"sender_action,omitempty"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	req := sendRequest{
		Recipient:     recipient{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       &outboundMessage{Text: text},
	}
	if _, err := c.postJSON(ctx, "me/messages", req); err != nil {
		return fmt.Errorf("send text to %s: %w", recipientID, err)
	}
	slog.Debug("Client.SendText: message sent", "to", recipientID, "length", len(text))
	return nil
}

// SendQuickReplies sends text with one quick reply button per option. Each
// payload is the option title in UPPER_SNAKE form.
func (c *Client) SendQuickReplies(ctx context.Context, recipientID, text string, options []string) error {
	replies := make([]quickReply, 0, len(options))
	for _, opt := range options {
		replies = append(replies, quickReply{
			ContentType: "text",
			Title:       opt,
			Payload:     string(models.PayloadFor(opt)),
		})
	}
	req := sendRequest{
		Recipient:     recipient{ID: recipientID},
		MessagingType: "RESPONSE",
		Message:       &outboundMessage{Text: text, QuickReplies: replies},
	}
	if _, err := c.postJSON(ctx, "me/messages", req); err != nil {
		return fmt.Errorf("send quick replies to %s: %w", recipientID, err)
	}
	slog.Debug("Client.SendQuickReplies: message sent", "to", recipientID, "options", len(options))
	return nil
}

// MarkSeen shows the read indicator to the user.
func (c *Client) MarkSeen(ctx context.Context, recipientID string) error {
	req := sendRequest{Recipient: recipient{ID: recipientID}, SenderAction: "mark_seen"}
	if _, err := c.postJSON(ctx, "me/messages", req); err != nil {
		return fmt.Errorf("mark seen for %s: %w", recipientID, err)
	}
	return nil
}

// GetUserProfile fetches the user's name.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (Profile, error) {
	params := url.Values{}
	params.Set("fields", "first_name,last_name,profile_pic")
	body, err := c.Invoke(ctx, http.MethodGet, userID, params, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile for %s: %w", userID, err)
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile for %s: %w", userID, err)
	}
	return p, nil
}

type profileGreeting struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

type profileCTA struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type profileMenu struct {
	Locale                string       `json:"locale"`
	ComposerInputDisabled bool         `json:"composer_input_disabled"`
	CallToActions         []profileCTA `json:"call_to_actions"`
}

type profileGetStarted struct {
	Payload string `json:"payload"`
}

type profileRequest struct {
	GetStarted     *profileGetStarted `json:"get_started,omitempty"`
	Greeting       []profileGreeting  `json:"greeting,omitempty"`
	PersistentMenu []profileMenu      `json:"persistent_menu,omitempty"`
}

// SetupProfile pushes the Get Started button, greeting and persistent menu.
func (c *Client) SetupProfile(ctx context.Context, s ProfileSettings) error {
	req := profileRequest{}
	if s.GetStartedPayload != "" {
		req.GetStarted = &profileGetStarted{Payload: s.GetStartedPayload}
	}
	if s.Greeting != "" {
		req.Greeting = []profileGreeting{{Locale: "default", Text: s.Greeting}}
	}
	if len(s.Menu) > 0 {
		menu := profileMenu{Locale: "default"}
		for _, item := range s.Menu {
			menu.CallToActions = append(menu.CallToActions, profileCTA{Type: "postback", Title: item.Title, Payload: item.Payload})
		}
		req.PersistentMenu = []profileMenu{menu}
	}
	if _, err := c.postJSON(ctx, "me/messenger_profile", req); err != nil {
		return fmt.Errorf("setup messenger profile: %w", err)
	}
	slog.Info("Client.SetupProfile: messenger profile updated", "menuItems", len(s.Menu))
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.Invoke(ctx, http.MethodPost, path, nil, data)
}

// Invoke performs one Graph API call and returns the response body. The page
// token is always sent as the access_token query parameter.
func (c *Client) Invoke(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.token)
	reqURL := c.baseURL + "/" + strings.Trim(path, "/") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: c.baseURL + "/" + strings.Trim(path, "/"), Code: resp.StatusCode, Message: string(respBody)}
	}
	return respBody, nil
}

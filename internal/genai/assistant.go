package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/util"
	"github.com/openai/openai-go"
)

// MaxHistory is the number of user and assistant messages kept per user,
// not counting the system prompt.
const MaxHistory = 10

// Bounds on the users whose history is kept. They match the session store
// defaults so a conversation is forgotten about when its session is.
const (
	DefaultHistoryTTL   = 24 * time.Hour
	DefaultHistoryUsers = 10000
)

// FallbackReply is sent when the assistant cannot produce an answer.
const FallbackReply = "I'm sorry, but I encountered an error processing your request."

const brandingSuffix = "\n\nSwift Showings - Real Estate Made Simple"

// brandingMinLength is the shortest reply that gets the branding suffix.
const brandingMinLength = 50

// DefaultSystemPrompt frames the assistant as Swift Showings support.
const DefaultSystemPrompt = `You are a helpful assistant for Swift Showings, a real estate service that connects home buyers directly with sellers to save on agent fees.
Swift Showings helps users find homes, schedule viewings, and save money during the home buying process.

When asked about real estate, provide helpful and accurate information. You should be knowledgeable about buying, selling, and renting properties.

If users ask for specific property listings or showings, guide them to use the Find Home feature available through the chat interface.

For any questions about savings, mortgage options, or financial aspects of home buying, provide general guidance and direct them to the Save Money feature.

When users need assistance with property issues, repairs, legal matters or other help topics, recommend the Get Help feature.

Be friendly, professional, and helpful at all times.

If you need to include different content for social media platforms, use hashtags like #facebook or #instagram followed by platform-specific content.
`

const contextNote = "\n\n[Context: This is a user of Swift Showings, a service that connects home buyers directly with sellers to save on agent fees. Swift Showings helps users find homes, schedule viewings, and save money during the home buying process.]"

var realEstateKeywords = []string{
	"home", "house", "property", "real estate", "realtor", "agent",
	"buy", "purchase", "rent", "apartment", "condo", "listing",
	"mortgage", "loan", "closing", "offer", "bid", "price", "cost",
	"fee", "bedroom", "bathroom", "square foot", "sqft", "neighborhood",
	"location", "address", "tour", "showing", "open house", "sell",
}

var platformTags = []string{"#facebook", "#instagram", "#twitter", "#linkedin"}

// Generator produces a completion for a full message list.
type Generator interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Response is an assistant answer split per platform.
type Response struct {
	Text      string
	Facebook  string
	Instagram string
}

// Assistant answers open-ended questions, keeping a short history per user.
type Assistant struct {
	gen          Generator
	systemPrompt string
	historyTTL   time.Duration
	historyUsers int
	cacheOpts    []util.CacheOption

	history *util.Cache[string, []openai.ChatCompletionMessageParamUnion]
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

// WithSystemPrompt overrides DefaultSystemPrompt.
func WithSystemPrompt(prompt string) AssistantOption {
	return func(a *Assistant) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// WithHistoryBounds drops a user's history after ttl without messages and
// caps how many users are remembered. Non-positive values keep the defaults.
func WithHistoryBounds(ttl time.Duration, users int) AssistantOption {
	return func(a *Assistant) {
		if ttl > 0 {
			a.historyTTL = ttl
		}
		if users > 0 {
			a.historyUsers = users
		}
	}
}

// WithHistoryClock overrides the time source used to expire history.
func WithHistoryClock(now func() time.Time) AssistantOption {
	return func(a *Assistant) {
		a.cacheOpts = append(a.cacheOpts, util.WithCacheClock(now))
	}
}

// NewAssistant creates an Assistant backed by gen.
func NewAssistant(gen Generator, opts ...AssistantOption) *Assistant {
	a := &Assistant{
		gen:          gen,
		systemPrompt: DefaultSystemPrompt,
		historyTTL:   DefaultHistoryTTL,
		historyUsers: DefaultHistoryUsers,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.history = util.NewCache[string, []openai.ChatCompletionMessageParamUnion](a.historyTTL, a.historyUsers, a.cacheOpts...)
	return a
}

// Ask returns the Messenger-ready answer to text. On failure it returns
// FallbackReply together with the error so callers can still reply.
func (a *Assistant) Ask(ctx context.Context, userID, text string) (string, error) {
	resp, err := a.Respond(ctx, userID, text)
	if err != nil {
		return FallbackReply, err
	}
	return resp.Facebook, nil
}

// Respond sends text with the user's history and records the exchange.
func (a *Assistant) Respond(ctx context.Context, userID, text string) (Response, error) {
	messages := a.appendUser(userID, EnhanceMessage(text))

	out, err := a.gen.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("Assistant.Respond: generation failed", "userID", userID, "error", err)
		return Response{Text: FallbackReply}, fmt.Errorf("assistant reply for %s: %w", userID, err)
	}

	a.appendAssistant(userID, out)
	slog.Debug("Assistant.Respond: reply generated", "userID", userID, "length", len(out))
	return ParseResponse(out), nil
}

// HistoryLen reports how many messages are kept for userID, excluding the
// system prompt.
func (a *Assistant) HistoryLen(userID string) int {
	h, _ := a.history.Get(userID)
	return len(h)
}

// HistoryUsers reports how many users currently have history.
func (a *Assistant) HistoryUsers() int {
	return a.history.Len()
}

// Forget drops the history kept for userID.
func (a *Assistant) Forget(userID string) {
	a.history.Delete(userID)
}

// appendUser records the user message, trims the history and returns the
// messages to send, system prompt first.
func (a *Assistant) appendUser(userID, text string) []openai.ChatCompletionMessageParamUnion {
	h := a.history.Update(userID, func(cur []openai.ChatCompletionMessageParamUnion, _ bool) []openai.ChatCompletionMessageParamUnion {
		next := append(cur, openai.UserMessage(text))
		if len(next) > MaxHistory {
			next = append([]openai.ChatCompletionMessageParamUnion(nil), next[len(next)-MaxHistory:]...)
		}
		return next
	})

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(h)+1)
	messages = append(messages, openai.SystemMessage(a.systemPrompt))
	return append(messages, h...)
}

func (a *Assistant) appendAssistant(userID, text string) {
	a.history.Update(userID, func(cur []openai.ChatCompletionMessageParamUnion, _ bool) []openai.ChatCompletionMessageParamUnion {
		return append(cur, openai.AssistantMessage(text))
	})
}

// EnhanceMessage appends the Swift Showings context note to longer messages
// that mention real estate.
func EnhanceMessage(message string) string {
	if len(message) <= 10 {
		return message
	}
	lower := strings.ToLower(message)
	for _, kw := range realEstateKeywords {
		if strings.Contains(lower, kw) {
			return message + contextNote
		}
	}
	return message
}

// ParseResponse splits #instagram and #facebook sections out of raw and
// brands the Facebook variant.
func ParseResponse(raw string) Response {
	text := raw
	facebook := raw
	instagram := raw

	if head, tail, ok := cutFold(text, "#instagram"); ok {
		instagram = strings.TrimSpace(tail)
		text = strings.TrimSpace(head)
	}
	if head, tail, ok := cutFold(raw, "#facebook"); ok {
		facebook = strings.TrimSpace(tail)
		if _, _, hasInsta := cutFold(raw, "#instagram"); !hasInsta {
			text = strings.TrimSpace(head)
		}
	}

	return Response{
		Text:      cleanTags(text),
		Facebook:  brand(cleanTags(facebook)),
		Instagram: cleanTags(instagram),
	}
}

// cutFold is strings.Cut with a case-insensitive separator.
func cutFold(s, sep string) (before, after string, found bool) {
	i := strings.Index(strings.ToLower(s), strings.ToLower(sep))
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// cleanTags removes any remaining platform hashtags.
func cleanTags(s string) string {
	for _, tag := range platformTags {
		for {
			head, tail, ok := cutFold(s, tag)
			if !ok {
				break
			}
			s = strings.TrimSpace(head + tail)
		}
	}
	return s
}

func brand(s string) string {
	if s == "" || strings.Contains(strings.ToLower(s), "swift showings") {
		return s
	}
	if len(s) > brandingMinLength {
		return s + brandingSuffix
	}
	return s
}

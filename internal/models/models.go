// Package models defines the core data structures for SwiftShowings.
//
// It includes the flow reply shape, persisted record kinds, inbound chat events
// and delivery receipts, which are shared across modules.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RecordTimeLayout is the timestamp layout used in persisted rows.
const RecordTimeLayout = "2006-01-02 15:04:05"

// Reply is what the flow engine hands back to the delivery layer.
// A nil Options slice means a free-text question.
type Reply struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// HasOptions reports whether the reply should be rendered as a constrained choice.
func (r Reply) HasOptions() bool {
	return len(r.Options) > 0
}

// EventKind identifies the record family a completed flow is persisted under.
type EventKind string

const (
	// EventKindHomePreference records a completed buy or rent interview.
	EventKindHomePreference EventKind = "home_preference"
	// EventKindHelpRequest records a completed help request sub-flow.
	EventKindHelpRequest EventKind = "help_request"
	// EventKindMoneyRequest records a completed savings sub-flow.
	EventKindMoneyRequest EventKind = "money_request"
	// EventKindConversation records a single inbound/outbound exchange.
	EventKindConversation EventKind = "conversation"
)

var ErrInvalidEventKind = errors.New("invalid event kind")

// IsValidEventKind checks if the given kind is a known record family.
func IsValidEventKind(k EventKind) bool {
	switch k {
	case EventKindHomePreference, EventKindHelpRequest, EventKindMoneyRequest, EventKindConversation:
		return true
	default:
		return false
	}
}

// ParseEventKind validates a raw kind string, typically from a query parameter.
func ParseEventKind(raw string) (EventKind, error) {
	k := EventKind(strings.TrimSpace(strings.ToLower(raw)))
	if !IsValidEventKind(k) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, raw)
	}
	return k, nil
}

// SheetName returns the human-facing table name for the record family.
func (k EventKind) SheetName() string {
	switch k {
	case EventKindHomePreference:
		return "Home Preferences"
	case EventKindHelpRequest:
		return "Help Requests"
	case EventKindMoneyRequest:
		return "Money Requests"
	case EventKindConversation:
		return "Conversations"
	default:
		return string(k)
	}
}

// Record is an append-only row persisted for a completed flow or a conversation exchange.
type Record struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	Fields    []string  `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationEntry is one logged exchange between a user and the bot.
type ConversationEntry struct {
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	Message  string    `json:"message"`
	Response string    `json:"response"`
	Platform string    `json:"platform"`
	ThreadID string    `json:"thread_id"`
	Time     time.Time `json:"time"`
}

// Fields flattens the entry into the Conversations row layout.
func (c ConversationEntry) Fields() []string {
	return []string{
		c.Time.Format(RecordTimeLayout),
		c.UserID,
		c.UserName,
		c.Message,
		c.Response,
		c.Platform,
		c.ThreadID,
	}
}

// InboundKind distinguishes how an inbound chat event was produced.
type InboundKind string

const (
	// InboundKindText is a typed message.
	InboundKindText InboundKind = "text"
	// InboundKindQuickReply is a tapped quick reply; Payload and Text are both set.
	InboundKindQuickReply InboundKind = "quick_reply"
	// InboundKindPostback is a persistent menu or button postback.
	InboundKindPostback InboundKind = "postback"
)

// Inbound is a platform-neutral inbound chat event.
type Inbound struct {
	Platform  string      `json:"platform"`
	MessageID string      `json:"message_id,omitempty"`
	SenderID  string      `json:"sender_id"`
	Kind      InboundKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Payload   string      `json:"payload,omitempty"`
	Time      int64       `json:"time"`
}

// MessageStatus represents the delivery state of an outbound message.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusDelivered MessageStatus = "delivered"
)

// Receipt represents a delivery receipt for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{response: APIResponse{}}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Recorded creates a recorded API response.
func Recorded() APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		Build()
}

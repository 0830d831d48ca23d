// filepath: internal/flow/flow.go
// Package flow implements the guided dialogue engine: per-flow step handlers,
// the registry that resolves a flow id to its handler, and the dispatcher that
// advances a user's session one message at a time.
package flow

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// ErrUnknownFlow is returned when a flow id has no registered handler.
var ErrUnknownFlow = errors.New("unknown flow")

// Completion describes a flow that has just finished. Columns holds the record
// columns that follow timestamp, user id and user name.
type Completion struct {
	Flow    models.FlowID
	Kind    models.EventKind
	Columns []string
}

// Outcome is the result of running one step of a handler.
type Outcome struct {
	Reply models.Reply
	// Handled is false when the handler had nothing to say for the session's
	// current step; the caller should treat the message as free conversation.
	Handled bool
	// Completion is set when this step finished the flow.
	Completion *Completion
}

// Handler drives one flow. Start enters the flow at step 1; Step consumes a
// user message at the session's current step.
type Handler interface {
	ID() models.FlowID
	Start(s *session.Session) Outcome
	Step(s *session.Session, msg string) Outcome
}

// Registry maps flow ids to handlers.
type Registry struct {
	handlers map[models.FlowID]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.FlowID]Handler)}
}

// Register associates a handler with its flow id, replacing any previous one.
func (r *Registry) Register(h Handler) {
	if _, exists := r.handlers[h.ID()]; exists {
		slog.Warn("Registry.Register: replacing handler", "flow", h.ID())
	}
	r.handlers[h.ID()] = h
}

// Get retrieves the handler for a flow id.
func (r *Registry) Get(id models.FlowID) (Handler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}

// MustGet is like Get but returns ErrUnknownFlow when nothing is registered.
func (r *Registry) MustGet(id models.FlowID) (Handler, error) {
	h, ok := r.handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, id)
	}
	return h, nil
}

// IDs returns the registered flow ids in sorted order.
func (r *Registry) IDs() []models.FlowID {
	ids := make([]models.FlowID, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package flow

import (
	"log/slog"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// Route maps a category label to the sub-flow it starts.
type Route struct {
	Label string
	Flow  models.FlowID
}

// Router asks for a category and hands off to the matching sub-flow, running
// the sub-flow's first step in the same turn. An unrecognized category
// re-asks without advancing.
type Router struct {
	id       models.FlowID
	prompt   Static
	invalid  Static
	store    models.DataKey
	foldCase bool
	routes   []Route
	registry *Registry
}

// Compile-time check that Router implements Handler.
var _ Handler = (*Router)(nil)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithCategoryKey stores the raw category answer under key before routing.
func WithCategoryKey(key models.DataKey) RouterOption {
	return func(r *Router) { r.store = key }
}

// WithCaseInsensitive matches category labels ignoring case.
func WithCaseInsensitive() RouterOption {
	return func(r *Router) { r.foldCase = true }
}

// WithInvalidPrompt sets the reply for an unrecognized category. It defaults
// to the router's own prompt.
func WithInvalidPrompt(p Static) RouterOption {
	return func(r *Router) { r.invalid = p }
}

// NewRouter creates a Router. Sub-flows are resolved through registry when a
// category is chosen, so they may be registered after the router.
func NewRouter(id models.FlowID, registry *Registry, prompt Static, routes []Route, opts ...RouterOption) *Router {
	r := &Router{
		id:       id,
		prompt:   prompt,
		invalid:  prompt,
		routes:   routes,
		registry: registry,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) ID() models.FlowID { return r.id }

// Start enters the router and asks for a category.
func (r *Router) Start(s *session.Session) Outcome {
	s.SetFlow(r.id, 1)
	return Outcome{Reply: r.prompt.Render(s), Handled: true}
}

// Step routes msg to a sub-flow.
func (r *Router) Step(s *session.Session, msg string) Outcome {
	if r.store != "" {
		s.StoreAnswer(r.store, msg)
	}

	choice := r.match(msg)
	if !choice.Recognized() {
		slog.Debug("Router.Step: unrecognized category", "flow", r.id, "userID", s.UserID, "answer", msg)
		return Outcome{Reply: r.invalid.Render(s), Handled: true}
	}

	for _, rt := range r.routes {
		if rt.Label != choice.Label {
			continue
		}
		sub, err := r.registry.MustGet(rt.Flow)
		if err != nil {
			slog.Error("Router.Step: sub-flow not registered", "flow", r.id, "target", rt.Flow, "error", err)
			return Outcome{Reply: r.invalid.Render(s), Handled: true}
		}
		slog.Debug("Router.Step: handing off", "flow", r.id, "target", rt.Flow, "userID", s.UserID)
		return sub.Start(s)
	}
	return Outcome{Reply: r.invalid.Render(s), Handled: true}
}

func (r *Router) match(msg string) Choice {
	labels := make([]string, len(r.routes))
	for i, rt := range r.routes {
		labels[i] = rt.Label
	}
	if r.foldCase {
		return MatchFold(msg, labels...)
	}
	return Match(msg, labels...)
}

// filepath: internal/flow/static.go
package flow

import (
	"slices"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// Prompt renders the reply for a step from the session's collected answers.
type Prompt interface {
	Render(s *session.Session) models.Reply
}

// Static is a fixed reply.
type Static models.Reply

// Render returns a copy of the fixed reply.
func (p Static) Render(*session.Session) models.Reply {
	return models.Reply{Text: p.Text, Options: slices.Clone(p.Options)}
}

// PromptFunc adapts a function to the Prompt interface.
type PromptFunc func(s *session.Session) models.Reply

// Render calls f(s).
func (f PromptFunc) Render(s *session.Session) models.Reply {
	return f(s)
}

// Ask builds a Static prompt offering the given quick reply options.
func Ask(text string, options ...string) Static {
	return Static{Text: text, Options: options}
}

// Say builds a free-text Static prompt.
func Say(text string) Static {
	return Static{Text: text}
}

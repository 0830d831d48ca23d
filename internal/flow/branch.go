// filepath: internal/flow/branch.go
package flow

import (
	"strings"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// ChoiceKind tags whether an answer matched one of a step's known labels.
type ChoiceKind int

const (
	// ChoiceUnrecognized means the answer matched no known label.
	ChoiceUnrecognized ChoiceKind = iota
	// ChoiceKnown means the answer matched a label.
	ChoiceKnown
)

// Choice is a user answer resolved against a set of option labels.
type Choice struct {
	Kind  ChoiceKind
	Label string // canonical label when Kind is ChoiceKnown
	Raw   string
}

// Recognized reports whether the answer matched a known label.
func (c Choice) Recognized() bool {
	return c.Kind == ChoiceKnown
}

// Match resolves raw against labels using exact comparison.
func Match(raw string, labels ...string) Choice {
	for _, l := range labels {
		if raw == l {
			return Choice{Kind: ChoiceKnown, Label: l, Raw: raw}
		}
	}
	return Choice{Kind: ChoiceUnrecognized, Raw: raw}
}

// MatchFold resolves raw against labels ignoring case and surrounding space.
func MatchFold(raw string, labels ...string) Choice {
	trimmed := strings.TrimSpace(raw)
	for _, l := range labels {
		if strings.EqualFold(trimmed, l) {
			return Choice{Kind: ChoiceKnown, Label: l, Raw: raw}
		}
	}
	return Choice{Kind: ChoiceUnrecognized, Raw: raw}
}

// Case pairs an option label with the prompt rendered when it was chosen.
type Case struct {
	Label  string
	Prompt Prompt
}

// Branch selects a prompt by the answer stored under On. An unrecognized
// answer renders Default.
type Branch struct {
	On      models.DataKey
	Cases   []Case
	Default Prompt
}

// Render picks the case matching the stored answer.
func (b Branch) Render(s *session.Session) models.Reply {
	c := Match(s.AnswerOr(b.On, ""), b.labels()...)
	if c.Recognized() {
		for _, cs := range b.Cases {
			if cs.Label == c.Label {
				return cs.Prompt.Render(s)
			}
		}
	}
	return b.Default.Render(s)
}

func (b Branch) labels() []string {
	out := make([]string, len(b.Cases))
	for i, c := range b.Cases {
		out[i] = c.Label
	}
	return out
}

package flow

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// StepSpec describes one numbered step of a TableFlow.
//
// Running step N stores the incoming message (the answer to step N-1's
// prompt) under AnswerKey, then renders Prompt. If Terminal reports true the
// flow completes; otherwise the session advances to step N+1.
type StepSpec struct {
	// AnswerKey is empty for step 1, which ignores the incoming message.
	AnswerKey models.DataKey
	// AnswerKeyFor overrides AnswerKey when the key depends on earlier answers.
	AnswerKeyFor func(s *session.Session) models.DataKey
	Prompt       Prompt
	// Terminal is nil for steps that never finish the flow.
	Terminal func(s *session.Session) bool
}

func (st StepSpec) keyFor(s *session.Session) models.DataKey {
	if st.AnswerKeyFor != nil {
		return st.AnswerKeyFor(s)
	}
	return st.AnswerKey
}

// Always marks a step as unconditionally terminal.
func Always(*session.Session) bool { return true }

// Unless returns a Terminal func that finishes the flow unless the answer under
// key equals label.
func Unless(key models.DataKey, label string) func(*session.Session) bool {
	return func(s *session.Session) bool {
		return !Match(s.AnswerOr(key, ""), label).Recognized()
	}
}

// RecordFunc builds the record columns for a completed flow.
type RecordFunc func(s *session.Session) []string

// TableFlow is a linear interview defined by its steps.
type TableFlow struct {
	id     models.FlowID
	kind   models.EventKind
	steps  []StepSpec
	record RecordFunc
}

// Compile-time check that TableFlow implements Handler.
var _ Handler = (*TableFlow)(nil)

// NewTableFlow validates steps and builds a TableFlow. steps[0] is step 1.
func NewTableFlow(id models.FlowID, kind models.EventKind, record RecordFunc, steps ...StepSpec) (*TableFlow, error) {
	if id == "" {
		return nil, fmt.Errorf("flow id cannot be empty")
	}
	if !models.IsValidEventKind(kind) {
		return nil, fmt.Errorf("flow %s: %w: %q", id, models.ErrInvalidEventKind, kind)
	}
	if record == nil {
		return nil, fmt.Errorf("flow %s: record builder is required", id)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("flow %s: at least one step is required", id)
	}
	for i, st := range steps {
		n := i + 1
		if st.Prompt == nil {
			return nil, fmt.Errorf("flow %s step %d: prompt is required", id, n)
		}
		if n == 1 && (st.AnswerKey != "" || st.AnswerKeyFor != nil) {
			return nil, fmt.Errorf("flow %s step 1: cannot store an answer", id)
		}
		if n > 1 && st.AnswerKey == "" && st.AnswerKeyFor == nil {
			return nil, fmt.Errorf("flow %s step %d: answer key is required", id, n)
		}
	}
	if steps[len(steps)-1].Terminal == nil {
		return nil, fmt.Errorf("flow %s: last step must be terminal", id)
	}
	return &TableFlow{id: id, kind: kind, steps: steps, record: record}, nil
}

// MustTableFlow is like NewTableFlow but panics on an invalid definition.
func MustTableFlow(id models.FlowID, kind models.EventKind, record RecordFunc, steps ...StepSpec) *TableFlow {
	f, err := NewTableFlow(id, kind, record, steps...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *TableFlow) ID() models.FlowID { return f.id }

// Steps returns the number of steps in the flow.
func (f *TableFlow) Steps() int { return len(f.steps) }

// Start enters the flow at step 1 and runs it, yielding the first question.
// Answers already in the session are kept.
func (f *TableFlow) Start(s *session.Session) Outcome {
	s.SetFlow(f.id, 1)
	return f.Step(s, "")
}

// Step runs the session's current step against msg.
func (f *TableFlow) Step(s *session.Session, msg string) Outcome {
	if s.Step < 1 || s.Step > len(f.steps) {
		slog.Warn("TableFlow.Step: step out of range, resetting session",
			"flow", f.id, "step", s.Step, "userID", s.UserID)
		s.Reset()
		return Outcome{}
	}
	st := f.steps[s.Step-1]

	if key := st.keyFor(s); key != "" {
		s.StoreAnswer(key, msg)
	}

	reply := st.Prompt.Render(s)
	if st.Terminal != nil && st.Terminal(s) {
		slog.Debug("TableFlow.Step: flow complete", "flow", f.id, "userID", s.UserID)
		return Outcome{
			Reply:   reply,
			Handled: true,
			Completion: &Completion{
				Flow:    f.id,
				Kind:    f.kind,
				Columns: f.record(s),
			},
		}
	}

	s.NextStep()
	return Outcome{Reply: reply, Handled: true}
}

// Package session holds the per-user dialogue state used by the flow engine.
//
// A Session is idle when ActiveFlow is empty; Step is only meaningful while a
// flow is active and is zero otherwise.
package session

import (
	"maps"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// Session is the mutable per-user record of active flow, current step and collected answers.
type Session struct {
	UserID     string                    `json:"user_id"`
	ActiveFlow models.FlowID             `json:"active_flow,omitempty"`
	Step       int                       `json:"step,omitempty"`
	Answers    map[models.DataKey]string `json:"answers"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// New returns an idle session for userID.
func New(userID string) *Session {
	return &Session{
		UserID:    userID,
		Answers:   make(map[models.DataKey]string),
		UpdatedAt: time.Now(),
	}
}

// IsIdle reports whether no flow is active.
func (s *Session) IsIdle() bool {
	return s.ActiveFlow == ""
}

// SetFlow activates flow at step, replacing any active flow. Answers are kept
// so a router's stored category survives the hand-off to its sub-flow.
func (s *Session) SetFlow(flow models.FlowID, step int) *Session {
	if step < 1 {
		step = 1
	}
	s.ActiveFlow = flow
	s.Step = step
	s.touch()
	return s
}

// NextStep advances the step counter by one. It is a no-op while idle.
func (s *Session) NextStep() *Session {
	if s.IsIdle() {
		return s
	}
	s.Step++
	s.touch()
	return s
}

// StoreAnswer records value under key, overwriting an earlier value for the same key.
func (s *Session) StoreAnswer(key models.DataKey, value string) *Session {
	if s.Answers == nil {
		s.Answers = make(map[models.DataKey]string)
	}
	s.Answers[key] = value
	s.touch()
	return s
}

// Answer returns the stored answer for key.
func (s *Session) Answer(key models.DataKey) (string, bool) {
	v, ok := s.Answers[key]
	return v, ok
}

// AnswerOr returns the stored answer for key or def when absent.
func (s *Session) AnswerOr(key models.DataKey, def string) string {
	if v, ok := s.Answers[key]; ok {
		return v
	}
	return def
}

// Reset returns the session to idle with no answers.
func (s *Session) Reset() *Session {
	s.ActiveFlow = ""
	s.Step = 0
	s.Answers = make(map[models.DataKey]string)
	s.touch()
	return s
}

// Clone returns a deep copy safe to hand outside the per-user lock.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = maps.Clone(s.Answers)
	if c.Answers == nil {
		c.Answers = make(map[models.DataKey]string)
	}
	return &c
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

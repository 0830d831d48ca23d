package session

import (
	"testing"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

func TestNewSessionIsIdle(t *testing.T) {
	s := New("u1")
	if !s.IsIdle() {
		t.Fatal("new session should be idle")
	}
	if s.Step != 0 {
		t.Errorf("expected step 0, got %d", s.Step)
	}
	if len(s.Answers) != 0 {
		t.Errorf("expected no answers, got %v", s.Answers)
	}
}

func TestSetFlowOverwrites(t *testing.T) {
	s := New("u1")
	s.SetFlow(models.FlowFindHomeBuy, 1).NextStep().NextStep()
	s.SetFlow(models.FlowGetHelp, 1)

	if s.ActiveFlow != models.FlowGetHelp {
		t.Errorf("expected flow %q, got %q", models.FlowGetHelp, s.ActiveFlow)
	}
	if s.Step != 1 {
		t.Errorf("expected step 1 after SetFlow, got %d", s.Step)
	}
}

func TestSetFlowClampsStep(t *testing.T) {
	s := New("u1").SetFlow(models.FlowHelpOther, 0)
	if s.Step != 1 {
		t.Errorf("expected step clamped to 1, got %d", s.Step)
	}
}

func TestNextStepIdleNoop(t *testing.T) {
	s := New("u1").NextStep()
	if s.Step != 0 || !s.IsIdle() {
		t.Errorf("NextStep on idle session should be a no-op, got %+v", s)
	}
}

func TestSetFlowKeepsAnswers(t *testing.T) {
	s := New("u1").SetFlow(models.FlowGetHelp, 1)
	s.StoreAnswer(models.KeyHelpCategory, "Legal Help")
	s.SetFlow(models.FlowHelpLegal, 1)

	if got := s.AnswerOr(models.KeyHelpCategory, ""); got != "Legal Help" {
		t.Errorf("expected category to survive hand-off, got %q", got)
	}
}

func TestReset(t *testing.T) {
	s := New("u1").SetFlow(models.FlowFindHomeRent, 3)
	s.StoreAnswer(models.KeyBudget, "$500-$1000")
	before := s.UpdatedAt

	s.Reset()

	if !s.IsIdle() || s.Step != 0 || len(s.Answers) != 0 {
		t.Errorf("expected idle empty session, got %+v", s)
	}
	if s.UpdatedAt.Before(before) {
		t.Error("Reset should bump UpdatedAt")
	}
}

func TestAnswerLookup(t *testing.T) {
	s := New("u1")
	if _, ok := s.Answer(models.KeyLocation); ok {
		t.Fatal("expected missing answer")
	}
	if got := s.AnswerOr(models.KeyLocation, "N/A"); got != "N/A" {
		t.Errorf("expected default, got %q", got)
	}
	s.StoreAnswer(models.KeyLocation, "Chicago, IL")
	if got, ok := s.Answer(models.KeyLocation); !ok || got != "Chicago, IL" {
		t.Errorf("expected stored answer, got %q (%v)", got, ok)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New("u1").SetFlow(models.FlowHelpOther, 2)
	s.StoreAnswer(models.KeyOtherQuestion, "original")

	c := s.Clone()
	c.StoreAnswer(models.KeyOtherQuestion, "changed")
	c.NextStep()

	if s.AnswerOr(models.KeyOtherQuestion, "") != "original" {
		t.Error("mutating the clone changed the original answers")
	}
	if s.Step != 2 {
		t.Errorf("mutating the clone changed the original step: %d", s.Step)
	}
}

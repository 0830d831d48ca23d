package flow

import (
	"testing"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		fold      bool
		wantKnown bool
		wantLabel string
	}{
		{"exact match", "Buy", false, true, "Buy"},
		{"exact is case sensitive", "buy", false, false, ""},
		{"fold ignores case", "BUY", true, true, "Buy"},
		{"fold trims space", "  rent ", true, true, "Rent"},
		{"no match", "Lease", true, false, ""},
		{"empty", "", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Choice
			if tt.fold {
				c = MatchFold(tt.raw, "Buy", "Rent")
			} else {
				c = Match(tt.raw, "Buy", "Rent")
			}
			if c.Recognized() != tt.wantKnown {
				t.Fatalf("Recognized() = %v, want %v", c.Recognized(), tt.wantKnown)
			}
			if c.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", c.Label, tt.wantLabel)
			}
			if c.Raw != tt.raw {
				t.Errorf("Raw = %q, want %q", c.Raw, tt.raw)
			}
		})
	}
}

func TestBranch_Render(t *testing.T) {
	b := Branch{
		On: models.KeyMortgageType,
		Cases: []Case{
			{Label: "Refinance", Prompt: Ask("refi", "Yes", "No")},
		},
		Default: Say("new loan"),
	}

	s := session.New("u1")
	if got := b.Render(s); got.Text != "new loan" || got.HasOptions() {
		t.Errorf("missing answer should render default, got %+v", got)
	}

	s.StoreAnswer(models.KeyMortgageType, "Refinance")
	got := b.Render(s)
	if got.Text != "refi" || len(got.Options) != 2 {
		t.Errorf("expected refi case, got %+v", got)
	}

	s.StoreAnswer(models.KeyMortgageType, "something typed")
	if got := b.Render(s); got.Text != "new loan" {
		t.Errorf("unrecognized answer should render default, got %+v", got)
	}
}

func TestStatic_RenderCopiesOptions(t *testing.T) {
	p := Ask("q", "A", "B")
	r := p.Render(nil)
	r.Options[0] = "changed"

	if p.Options[0] != "A" {
		t.Error("mutating a rendered reply changed the prompt definition")
	}
}

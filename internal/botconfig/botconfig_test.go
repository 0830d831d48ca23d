package botconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Welcome == "" || c.LearnMore == "" {
		t.Fatalf("default content incomplete: %+v", c)
	}
	want := []string{"Find Home", "Get Help", "Save Money", "Learn More"}
	got := c.MenuTitles()
	if len(got) != len(want) {
		t.Fatalf("menu titles = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("menu[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.GetStartedPayload != "GET_STARTED" {
		t.Errorf("get started payload = %q", c.GetStartedPayload)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, c Content)
		wantErr error
	}{
		{
			name: "partial override keeps defaults",
			yaml: "learn_more: Custom answer\n",
			check: func(t *testing.T, c Content) {
				if c.LearnMore != "Custom answer" {
					t.Errorf("LearnMore = %q", c.LearnMore)
				}
				if c.Welcome != Default().Welcome {
					t.Errorf("Welcome not defaulted: %q", c.Welcome)
				}
			},
		},
		{
			name: "custom menu",
			yaml: "menu:\n  - title: Find Home\n    payload: FIND_HOME\n",
			check: func(t *testing.T, c Content) {
				if len(c.Menu) != 1 || c.Menu[0].Payload != "FIND_HOME" {
					t.Errorf("Menu = %+v", c.Menu)
				}
			},
		},
		{
			name:    "menu item without payload",
			yaml:    "menu:\n  - title: Find Home\n",
			wantErr: ErrInvalidContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.yaml))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("menu: [unclosed")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	if err != nil || c.Welcome != Default().Welcome {
		t.Fatalf("Load(\"\") = %+v, %v", c, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestHolder(t *testing.T) {
	h := NewHolder(Default())
	c := h.Current()
	c.Welcome = "changed locally"
	if h.Current().Welcome == "changed locally" {
		t.Error("Current must return a copy")
	}
	h.Set(Content{Welcome: "new"})
	if h.Current().Welcome != "new" {
		t.Errorf("Set did not replace content")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	if err := os.WriteFile(path, []byte("learn_more: first\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := NewHolder(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := Watch(ctx, path, h); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("learn_more: second\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if h.Current().LearnMore == "second" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("content not reloaded, LearnMore = %q", h.Current().LearnMore)
}

func TestWatch_InvalidFileKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	h := NewHolder(Default())
	reload(path, h)
	if h.Current().Welcome != Default().Welcome {
		t.Error("failed reload must keep previous content")
	}
}

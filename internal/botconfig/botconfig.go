// Package botconfig loads the bot's free-standing texts (welcome message,
// greeting, menu, Learn More answer and assistant prompt) from YAML and keeps
// them current while the bot runs.
package botconfig

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/goccy/go-yaml"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidContent is returned when a loaded file fails validation.
var ErrInvalidContent = errors.New("invalid bot content")

// MenuItem is one main menu entry. Titles are shown to the user; payloads are
// what Messenger posts back.
type MenuItem struct {
	Title   string `yaml:"title" json:"title"`
	Payload string `yaml:"payload" json:"payload"`
}

// Content is the bot text that lives outside the flow catalog.
type Content struct {
	Welcome           string     `yaml:"welcome" json:"welcome"`
	Greeting          string     `yaml:"greeting" json:"greeting"`
	LearnMore         string     `yaml:"learn_more" json:"learn_more"`
	GetStartedPayload string     `yaml:"get_started_payload" json:"get_started_payload"`
	AssistantPrompt   string     `yaml:"assistant_prompt,omitempty" json:"assistant_prompt,omitempty"`
	Menu              []MenuItem `yaml:"menu" json:"menu"`
}

// MenuTitles returns the menu titles in order.
func (c Content) MenuTitles() []string {
	titles := make([]string, 0, len(c.Menu))
	for _, m := range c.Menu {
		titles = append(titles, m.Title)
	}
	return titles
}

// Validate checks that the fields the bot cannot work without are set.
func (c Content) Validate() error {
	if c.Welcome == "" {
		return fmt.Errorf("%w: welcome is empty", ErrInvalidContent)
	}
	if len(c.Menu) == 0 {
		return fmt.Errorf("%w: menu is empty", ErrInvalidContent)
	}
	for i, m := range c.Menu {
		if m.Title == "" || m.Payload == "" {
			return fmt.Errorf("%w: menu item %d needs title and payload", ErrInvalidContent, i)
		}
	}
	return nil
}

// Default returns the embedded content.
func Default() Content {
	c, err := decode(defaultYAML)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		panic(fmt.Sprintf("botconfig: embedded default.yaml is invalid: %v", err))
	}
	return c
}

// Parse decodes and validates YAML. Fields missing from data take their
// default values.
func Parse(data []byte) (Content, error) {
	c, err := decode(data)
	if err != nil {
		return Content{}, err
	}
	c = c.withDefaults(Default())
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}

func decode(data []byte) (Content, error) {
	var c Content
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return Content{}, fmt.Errorf("decode bot content: %w", err)
	}
	return c, nil
}

func (c Content) withDefaults(d Content) Content {
	if c.Welcome == "" {
		c.Welcome = d.Welcome
	}
	if c.Greeting == "" {
		c.Greeting = d.Greeting
	}
	if c.LearnMore == "" {
		c.LearnMore = d.LearnMore
	}
	if c.GetStartedPayload == "" {
		c.GetStartedPayload = d.GetStartedPayload
	}
	if c.AssistantPrompt == "" {
		c.AssistantPrompt = d.AssistantPrompt
	}
	if len(c.Menu) == 0 {
		c.Menu = d.Menu
	}
	return c
}

// Load reads path. An empty path yields Default.
func Load(path string) (Content, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("read bot content %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Content{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Holder shares the current Content between the watcher and readers.
type Holder struct {
	v atomic.Pointer[Content]
}

// NewHolder returns a Holder initialised with c.
func NewHolder(c Content) *Holder {
	h := &Holder{}
	h.Set(c)
	return h
}

// Current returns the latest content.
func (h *Holder) Current() Content {
	return *h.v.Load()
}

// Set replaces the content.
func (h *Holder) Set(c Content) {
	h.v.Store(&c)
}

// Package prompts manages the transformation prompt store: a YAML file
// of reusable prompt templates addressed by id.
package prompts

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Prompt is one reusable transformation template.
type Prompt struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
}

// fallbackPrompt is used when the store is empty.
var fallbackPrompt = Prompt{
	ID:    "summarize",
	Title: "Summarize",
	Text:  "Summarize the following transcript concisely, keeping the key statements.",
}

// storeFile is the on-disk shape of the prompt store.
type storeFile struct {
	Prompts []Prompt `yaml:"prompts"`
}

// Store holds the loaded prompts.
type Store struct {
	prompts []Prompt
}

// Load reads the prompt store from path. A missing file yields an
// empty store, not an error; the hardcoded fallback still applies.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt store: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompt store: %w", err)
	}

	return &Store{prompts: file.Prompts}, nil
}

// Save writes the store to path.
func (s *Store) Save(path string) error {
	data, err := yaml.Marshal(storeFile{Prompts: s.prompts})
	if err != nil {
		return fmt.Errorf("failed to marshal prompt store: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompt store: %w", err)
	}
	return nil
}

// All returns every prompt in store order.
func (s *Store) All() []Prompt {
	out := make([]Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// Add appends or replaces a prompt by id.
func (s *Store) Add(p Prompt) {
	for i, existing := range s.prompts {
		if existing.ID == p.ID {
			s.prompts[i] = p
			return
		}
	}
	s.prompts = append(s.prompts, p)
}

// Resolve returns the prompt with the given id, falling back to the
// first available prompt when the id is absent, and to a minimal
// hardcoded prompt when the store is empty.
func (s *Store) Resolve(id string) Prompt {
	for _, p := range s.prompts {
		if p.ID == id {
			return p
		}
	}
	if len(s.prompts) > 0 {
		return s.prompts[0]
	}
	return fallbackPrompt
}

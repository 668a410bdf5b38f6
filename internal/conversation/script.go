package conversation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is the prompt description loaded at session start. A malformed
// script is fatal for starting the session.
type Script struct {
	// System is the base system prompt establishing the roleplay frame.
	System string `yaml:"system"`
	// Description is the scene/character framing appended to the system
	// message, with {{char}}, {{player}}, {{scene}} and {{date}}
	// placeholders expanded per turn.
	Description string `yaml:"description"`
	// Examples are few-shot example turns placed ahead of live history.
	Examples []ExampleTurn `yaml:"examples"`
	// SummarizePrompt overrides the default summarization instruction.
	SummarizePrompt string `yaml:"summarize_prompt,omitempty"`
}

// ExampleTurn is a single few-shot example message.
type ExampleTurn struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

// LoadScript reads and validates a YAML description script.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script %s: %w", path, err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	if s.System == "" {
		return Script{}, fmt.Errorf("script %s: system prompt is required", path)
	}
	return s, nil
}

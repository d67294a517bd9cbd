package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// GuardrailKeywords overrides the built-in policy keyword lists. An omitted or
// empty list keeps the built-in one.
type GuardrailKeywords struct {
	Abusive    []string `yaml:"abusive"`
	OutOfScope []string `yaml:"out_of_scope"`
}

// LoadGuardrailKeywords reads a YAML keyword file. An empty path yields no
// overrides.
func LoadGuardrailKeywords(path string) (GuardrailKeywords, error) {
	if path == "" {
		return GuardrailKeywords{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return GuardrailKeywords{}, fmt.Errorf("read guardrail keywords: %w", err)
	}

	var keywords GuardrailKeywords
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&keywords); err != nil && !errors.Is(err, io.EOF) {
		return GuardrailKeywords{}, fmt.Errorf("parse guardrail keywords %s: %w", path, err)
	}
	return keywords, nil
}

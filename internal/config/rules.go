package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CustomType declares a user-configured entity type backed by a pattern
// rule. The pattern is validated (compiled) by the pattern extractor at
// construction time, so a malformed pattern fails fast at load, never
// per-document.
type CustomType struct {
	// Name is the entity type emitted for matches (e.g. CASE_NUMBER).
	Name string `yaml:"name"`

	// Pattern is the RE2 expression matching the type's surface form.
	Pattern string `yaml:"pattern"`

	// Description documents the type for operators.
	Description string `yaml:"description"`

	// Confidence is the fixed confidence for matches. Defaults to 1.0:
	// exact structured patterns are treated as certain.
	Confidence float64 `yaml:"confidence"`
}

// Rules is the content of the YAML rules file.
type Rules struct {
	CustomTypes []CustomType `yaml:"custom_types"`
}

// LoadRules reads and parses a YAML rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read rules file %s: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("config: cannot parse rules file %s: %w", path, err)
	}

	for i := range rules.CustomTypes {
		ct := &rules.CustomTypes[i]
		if ct.Name == "" {
			return nil, fmt.Errorf("config: custom type %d is missing a name", i)
		}
		if ct.Pattern == "" {
			return nil, fmt.Errorf("config: custom type %q is missing a pattern", ct.Name)
		}
		if ct.Confidence == 0 {
			ct.Confidence = 1.0
		}
		if ct.Confidence < 0 || ct.Confidence > 1 {
			return nil, fmt.Errorf("config: custom type %q confidence %v out of range", ct.Name, ct.Confidence)
		}
	}
	return &rules, nil
}

// EntityTypes returns the names of all configured custom types.
func (r *Rules) EntityTypes() []string {
	names := make([]string, 0, len(r.CustomTypes))
	for _, ct := range r.CustomTypes {
		names = append(names, ct.Name)
	}
	return names
}

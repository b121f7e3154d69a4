package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes a decoy persona. Operators can ship their own via
// a YAML file; empty fields keep the built-in Arthur defaults.
type Profile struct {
	Name         string   `yaml:"name"`
	SystemPrompt string   `yaml:"system_prompt"`
	Fallbacks    []string `yaml:"fallbacks"`
	Model        string   `yaml:"model"`
}

// DefaultProfile returns the built-in Arthur persona.
func DefaultProfile() Profile {
	return Profile{
		Name:         "Arthur",
		SystemPrompt: defaultSystemPrompt,
		Fallbacks:    defaultFallbacks,
	}
}

// LoadProfile reads a persona profile from path. An empty path returns
// the default profile without touching the filesystem.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read persona profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse persona profile: %w", err)
	}
	return p.withDefaults(), nil
}

func (p Profile) withDefaults() Profile {
	d := DefaultProfile()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = d.SystemPrompt
	}
	if len(p.Fallbacks) == 0 {
		p.Fallbacks = d.Fallbacks
	}
	return p
}

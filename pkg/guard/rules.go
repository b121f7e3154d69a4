package guard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the optional operator-supplied rule pack. Any empty section
// keeps its built-in default, so a file can override just one list.
type Rules struct {
	// Triggers feed the extractor's suspiciousKeywords class.
	Triggers []string `yaml:"triggers"`

	// ScamPhrases feed the keyword classifier.
	ScamPhrases []string `yaml:"scam_phrases"`

	// ScamScripts seed the semantic classifier's reference corpus.
	ScamScripts []ScamScript `yaml:"scam_scripts"`
}

// ScamScript is one known scam opening line with its campaign category.
type ScamScript struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

// LoadRules reads a YAML rule pack from path. An empty path returns
// empty rules (all defaults) without touching the filesystem.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return &r, nil
}

package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flowlens/internal/model"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// LoadRulesFromJSON loads rule settings from a JSON file
func LoadRulesFromJSON(filename string) ([]model.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules struct {
		Rules []model.Rule `json:"rules"`
	}

	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	return rules.Rules, nil
}

// LoadRulesFromYAML loads rule settings from a YAML file
func LoadRulesFromYAML(filename string) ([]model.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules struct {
		Rules []model.Rule `yaml:"rules"`
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules file: %w", err)
	}

	return rules.Rules, nil
}

// LoadRules picks the decoder from the file extension, trying YAML then JSON when it is unknown
func LoadRules(filename string) ([]model.Rule, error) {
	if filename == "" {
		return nil, fmt.Errorf("rules file path is empty")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadRulesFromYAML(filename)
	case ".json":
		return LoadRulesFromJSON(filename)
	}

	if rules, err := LoadRulesFromYAML(filename); err == nil {
		return rules, nil
	}
	return LoadRulesFromJSON(filename)
}

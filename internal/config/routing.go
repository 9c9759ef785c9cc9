package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

type routingFile struct {
	DefaultLanguage string   `yaml:"default_language"`
	SupportSignals  []string `yaml:"support_signals"`
}

// LoadRoutingPolicy reads the optional routing policy file. An empty path
// yields the built-in policy; a file may override the default language, the
// support signal list, or both.
func LoadRoutingPolicy(path string) (domain.RoutingPolicy, error) {
	policy := domain.DefaultRoutingPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.RoutingPolicy{}, fmt.Errorf("read routing policy: %w", err)
	}

	var file routingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.RoutingPolicy{}, fmt.Errorf("parse routing policy: %w", err)
	}

	if file.DefaultLanguage != "" {
		policy.DefaultLanguage = domain.Language(file.DefaultLanguage)
	}
	if len(file.SupportSignals) > 0 {
		policy.SupportSignals = file.SupportSignals
	}
	return policy, nil
}

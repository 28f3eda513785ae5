package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resumescreen/internal/scoring"

	"github.com/spf13/viper"
)

// LoadRuleSetFile reads a standalone rule set file (YAML or JSON) and returns
// its name and parsed config. The rule set name is the file name without its
// extension, so rulesets/backend-engineer.yaml loads as "backend-engineer".
func LoadRuleSetFile(path string) (string, scoring.RuleSetConfig, error) {
	var cfg scoring.RuleSetConfig

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch ext {
	case "yaml", "yml", "json":
	default:
		return "", cfg, fmt.Errorf("unsupported rule set file type %q (want yaml or json)", ext)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", cfg, fmt.Errorf("failed to read rule set file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return "", cfg, fmt.Errorf("failed to parse rule set file %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return name, cfg, nil
}

// LoadRuleSets populates the registry from the inline rulesets config tree
// and, if set, every rule set file in app.ruleSetDir. Loading is best-effort
// per rule set: a rejected config is reported and skipped so one bad posting
// does not take down the rest. The returned error aggregates the failures.
func (c *Config) LoadRuleSets(registry *scoring.Registry) error {
	var failed []string

	for name, cfg := range c.RuleSets {
		if _, err := registry.Load(name, cfg); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if c.App.RuleSetDir != "" {
		entries, err := os.ReadDir(c.App.RuleSetDir)
		if err != nil {
			return fmt.Errorf("failed to read rule set directory %s: %w", c.App.RuleSetDir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isRuleSetFile(entry.Name()) {
				continue
			}
			path := filepath.Join(c.App.RuleSetDir, entry.Name())
			name, cfg, err := LoadRuleSetFile(path)
			if err != nil {
				failed = append(failed, err.Error())
				continue
			}
			if _, err := registry.Load(name, cfg); err != nil {
				failed = append(failed, fmt.Sprintf("%s: %v", name, err))
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to load %d rule set(s): %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// isRuleSetFile reports whether a directory entry looks like a rule set file
func isRuleSetFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resumescreen/internal/scoring"
)

func baseConfig() Config {
	return Config{
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "text",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
		Extract: ExtractConfig{
			Provider: "heuristic",
			Timeout:  30 * time.Second,
		},
		Pipeline: PipelineConfig{Workers: 4},
		Server: ServerConfig{
			Port: "8080",
			TLS:  TLSConfig{Mode: "disabled"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name: "unknown extract provider",
			mutate: func(c *Config) {
				c.Extract.Provider = "openai"
			},
			wantErr: "invalid extract provider",
		},
		{
			name: "gemini without api key",
			mutate: func(c *Config) {
				c.Extract.Provider = "gemini"
			},
			wantErr: "requires an API key",
		},
		{
			name: "gemini with vault enabled",
			mutate: func(c *Config) {
				c.Extract.Provider = "gemini"
				c.Vault.Enabled = true
			},
		},
		{
			name: "zero workers",
			mutate: func(c *Config) {
				c.Pipeline.Workers = 0
			},
			wantErr: "workers must be positive",
		},
		{
			name: "missing server port",
			mutate: func(c *Config) {
				c.Server.Port = ""
			},
			wantErr: "server port is required",
		},
		{
			name: "unsupported default format",
			mutate: func(c *Config) {
				c.App.DefaultFormat = "xml"
			},
			wantErr: "invalid default format",
		},
		{
			name: "tls server mode without cert",
			mutate: func(c *Config) {
				c.Server.TLS.Mode = "server"
			},
			wantErr: "certificate and key files are required",
		},
		{
			name: "smtp enabled without host",
			mutate: func(c *Config) {
				c.SMTP.Enabled = true
				c.SMTP.Port = 587
			},
			wantErr: "SMTP host and port are required",
		},
		{
			name: "sheets enabled without spreadsheet",
			mutate: func(c *Config) {
				c.Sheets.Enabled = true
			},
			wantErr: "spreadsheetId is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplySMTPDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.SMTP.Username = "recruiter@example.com"
	cfg.applyFallbacks()
	if cfg.SMTP.From != "recruiter@example.com" {
		t.Errorf("From = %q, want username fallback", cfg.SMTP.From)
	}
}

func TestLoadRuleSetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backend-engineer.yaml")
	content := `criteria:
  - id: skills
    field: skills
    type: skills_overlap
    weight: 60
    requiredSkills: ["Go", "SQL"]
  - id: experience
    field: experience_months
    type: threshold
    weight: 40
    threshold: 24
tiers:
  - tier: Shortlist
    min: 75
  - tier: Review
    min: 40
  - tier: Reject
    min: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	name, cfg, err := LoadRuleSetFile(path)
	if err != nil {
		t.Fatalf("LoadRuleSetFile: %v", err)
	}
	if name != "backend-engineer" {
		t.Errorf("name = %q, want backend-engineer", name)
	}
	if len(cfg.Criteria) != 2 || len(cfg.Tiers) != 3 {
		t.Fatalf("parsed %d criteria and %d tiers, want 2 and 3", len(cfg.Criteria), len(cfg.Tiers))
	}
	if cfg.Criteria[0].Type != scoring.TypeSkillsOverlap {
		t.Errorf("criteria[0].Type = %q, want skills_overlap", cfg.Criteria[0].Type)
	}

	if _, err := scoring.LoadRuleSet("backend-engineer", cfg); err != nil {
		t.Errorf("parsed file does not validate: %v", err)
	}
}

func TestLoadRuleSetsSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()

	good := `criteria:
  - id: skills
    field: skills
    type: skills_overlap
    weight: 100
    requiredSkills: ["Go"]
tiers:
  - tier: Shortlist
    min: 75
  - tier: Reject
    min: 0
`
	bad := `criteria:
  - id: skills
    field: certifications
    type: skills_overlap
    weight: 0
tiers: []
`
	if err := os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(good), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := baseConfig()
	cfg.App.RuleSetDir = dir

	registry := scoring.NewRegistry()
	err := cfg.LoadRuleSets(registry)
	if err == nil {
		t.Fatal("expected aggregate error for the bad file")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error %q does not name the bad file", err)
	}

	if _, err := registry.Get("good"); err != nil {
		t.Errorf("good rule set was not loaded: %v", err)
	}
	if _, err := registry.Get("bad"); err == nil {
		t.Error("bad rule set should not have been loaded")
	}
}

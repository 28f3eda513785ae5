package scoring

import (
	"strings"
	"testing"

	"resumescreen/internal/errors"
)

func validConfig() RuleSetConfig {
	return RuleSetConfig{
		Criteria: []Criterion{
			{ID: "skills", Field: FieldSkills, Type: TypeSkillsOverlap,
				Weight: 60, RequiredSkills: []string{"Go"}},
			{ID: "experience", Field: FieldExperienceMonths, Type: TypeThreshold,
				Weight: 40, Threshold: 12},
		},
		Tiers: defaultTiers(),
	}
}

func TestLoadRuleSetValid(t *testing.T) {
	rs, err := LoadRuleSet("posting-1", validConfig())
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if rs.Name != "posting-1" {
		t.Errorf("Name = %q, want posting-1", rs.Name)
	}
	if rs.TotalWeight() != 100 {
		t.Errorf("TotalWeight = %v, want 100", rs.TotalWeight())
	}
	if rs.LowestTier() != TierReject {
		t.Errorf("LowestTier = %s, want Reject", rs.LowestTier())
	}
}

func TestLoadRuleSetViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RuleSetConfig)
		wantSub []string
	}{
		{
			name: "zero weight",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[0].Weight = 0
			},
			wantSub: []string{"weight must be positive"},
		},
		{
			name: "negative weight",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[1].Weight = -5
			},
			wantSub: []string{"weight must be positive"},
		},
		{
			name: "unknown field selector",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[0].Field = "certifications"
				cfg.Criteria[0].Type = TypeExactMatch
				cfg.Criteria[0].Expected = "AWS"
			},
			wantSub: []string{`unknown field selector "certifications"`},
		},
		{
			name: "duplicate criterion id",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[1].ID = cfg.Criteria[0].ID
			},
			wantSub: []string{"duplicate criterion id"},
		},
		{
			name: "unknown criterion type",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[0].Type = "fuzzy"
			},
			wantSub: []string{`unknown criterion type "fuzzy"`},
		},
		{
			name: "skills overlap without required skills",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[0].RequiredSkills = nil
			},
			wantSub: []string{"non-empty requiredSkills"},
		},
		{
			name: "threshold on text field",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[1].Field = FieldLocation
			},
			wantSub: []string{"threshold only applies to numeric fields"},
		},
		{
			name: "partial credit out of range",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[1].PartialCredit = 1.0
			},
			wantSub: []string{"partialCredit must be in [0,1)"},
		},
		{
			name: "exact match without expected value",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria[0] = Criterion{ID: "loc", Field: FieldLocation,
					Type: TypeExactMatch, Weight: 10}
			},
			wantSub: []string{"non-empty expected value"},
		},
		{
			name: "empty criteria",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Criteria = nil
			},
			wantSub: []string{"no criteria"},
		},
		{
			name: "empty tier table",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Tiers = nil
			},
			wantSub: []string{"tier table is empty"},
		},
		{
			name: "non-monotonic tier table",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Tiers = []TierBand{
					{Tier: TierShortlist, Min: 40},
					{Tier: TierReview, Min: 75},
					{Tier: TierReject, Min: 0},
				}
			},
			wantSub: []string{"must be monotonic"},
		},
		{
			name: "tier table with a gap above zero",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Tiers = []TierBand{
					{Tier: TierShortlist, Min: 75},
					{Tier: TierReview, Min: 40},
				}
			},
			wantSub: []string{"does not cover the full score range"},
		},
		{
			name: "tier min above 100",
			mutate: func(cfg *RuleSetConfig) {
				cfg.Tiers[0].Min = 120
			},
			wantSub: []string{"outside [0,100]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			_, err := LoadRuleSet("bad", cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			cfgErr, ok := err.(*errors.ConfigurationError)
			if !ok {
				t.Fatalf("error type = %T, want *errors.ConfigurationError", err)
			}
			for _, sub := range tt.wantSub {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("violations %v do not mention %q", cfgErr.Violations, sub)
				}
			}
		})
	}
}

func TestLoadRuleSetReportsAllViolationsTogether(t *testing.T) {
	// One config with two independent problems: a zero weight and a field
	// outside the enumerated set. Both must appear in a single report.
	cfg := RuleSetConfig{
		Criteria: []Criterion{
			{ID: "skills", Field: FieldSkills, Type: TypeSkillsOverlap,
				Weight: 0, RequiredSkills: []string{"Go"}},
			{ID: "certs", Field: "certifications", Type: TypeExactMatch,
				Weight: 10, Expected: "AWS"},
		},
		Tiers: defaultTiers(),
	}

	_, err := LoadRuleSet("multi", cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	cfgErr, ok := err.(*errors.ConfigurationError)
	if !ok {
		t.Fatalf("error type = %T, want *errors.ConfigurationError", err)
	}

	var sawWeight, sawField bool
	for _, v := range cfgErr.Violations {
		if strings.Contains(v, "weight must be positive") {
			sawWeight = true
		}
		if strings.Contains(v, `unknown field selector "certifications"`) {
			sawField = true
		}
	}
	if !sawWeight || !sawField {
		t.Errorf("violations = %v, want both the weight and the field violation", cfgErr.Violations)
	}
}

func TestRegistryIsolatesBadRuleSets(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.Load("posting-1", validConfig()); err != nil {
		t.Fatalf("Load posting-1: %v", err)
	}

	// A broken reload for the same posting must not displace the loaded one.
	broken := validConfig()
	broken.Criteria[0].Weight = -1
	if _, err := registry.Load("posting-1", broken); err == nil {
		t.Fatal("expected error loading broken config")
	}

	rs, err := registry.Get("posting-1")
	if err != nil {
		t.Fatalf("Get posting-1 after failed reload: %v", err)
	}
	if rs.TotalWeight() != 100 {
		t.Errorf("previously loaded rule set was displaced: TotalWeight = %v", rs.TotalWeight())
	}

	// Other postings are unaffected either way.
	if _, err := registry.Get("posting-2"); err == nil {
		t.Error("expected error for unknown posting")
	}
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := registry.Load(name, validConfig()); err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Names = %v, want [alpha zeta]", names)
	}
}

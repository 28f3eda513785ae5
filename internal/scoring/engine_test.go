package scoring

import (
	"reflect"
	"testing"

	"resumescreen/internal/errors"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func defaultTiers() []TierBand {
	return []TierBand{
		{Tier: TierShortlist, Min: 75},
		{Tier: TierReview, Min: 40},
		{Tier: TierReject, Min: 0},
	}
}

// hiringRuleSet is the worked example: skills 50, experience 30, location 20.
func hiringRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	rs, err := LoadRuleSet("backend-hyderabad", RuleSetConfig{
		Criteria: []Criterion{
			{ID: "core-skills", Field: FieldSkills, Type: TypeSkillsOverlap,
				Weight: 50, RequiredSkills: []string{"Python", "SQL"}},
			{ID: "min-experience", Field: FieldExperienceMonths, Type: TypeThreshold,
				Weight: 30, Threshold: 6},
			{ID: "base-location", Field: FieldLocation, Type: TypeExactMatch,
				Weight: 20, Expected: "Hyderabad"},
		},
		Tiers: defaultTiers(),
	})
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	return rs
}

func TestScoreWorkedExample(t *testing.T) {
	rules := hiringRuleSet(t)

	candidate := CandidateRecord{
		Name:             "A. Candidate",
		Skills:           []string{"Python"},
		ExperienceMonths: intPtr(8),
		Location:         strPtr("Hyderabad"),
	}

	result, err := Score(candidate, rules)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if result.Total != 75 {
		t.Errorf("Total = %d, want 75", result.Total)
	}
	if result.Tier != TierShortlist {
		t.Errorf("Tier = %s, want Shortlist", result.Tier)
	}
	if result.Disqualified {
		t.Error("Disqualified = true, want false")
	}

	wantContributions := map[string]float64{
		"core-skills":    25, // 1/2 overlap x 50
		"min-experience": 30, // threshold met
		"base-location":  20, // exact match
	}
	for _, cs := range result.Breakdown {
		if want := wantContributions[cs.CriterionID]; cs.Contribution != want {
			t.Errorf("%s contribution = %v, want %v", cs.CriterionID, cs.Contribution, want)
		}
	}
}

func TestScoreAbsentExperience(t *testing.T) {
	rules := hiringRuleSet(t)

	candidate := CandidateRecord{
		Skills:   []string{"Python"},
		Location: strPtr("Hyderabad"),
		// ExperienceMonths absent: zero contribution, no error.
	}

	result, err := Score(candidate, rules)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if result.Total != 45 {
		t.Errorf("Total = %d, want 45", result.Total)
	}
	if result.Tier != TierReview {
		t.Errorf("Tier = %s, want Review", result.Tier)
	}
}

func TestScoreEmptyCandidate(t *testing.T) {
	rules := hiringRuleSet(t)

	result, err := Score(CandidateRecord{}, rules)
	if err != nil {
		t.Fatalf("Score on empty candidate: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("Total = %d, want 0", result.Total)
	}
	if result.Tier != TierReject {
		t.Errorf("Tier = %s, want Reject", result.Tier)
	}
	if len(result.Breakdown) != 3 {
		t.Errorf("Breakdown length = %d, want 3", len(result.Breakdown))
	}
	for _, cs := range result.Breakdown {
		if cs.Matched || cs.Contribution != 0 {
			t.Errorf("%s: matched=%v contribution=%v, want false/0", cs.CriterionID, cs.Matched, cs.Contribution)
		}
	}
}

func TestScoreDeterminism(t *testing.T) {
	rules := hiringRuleSet(t)
	candidate := CandidateRecord{
		Skills:           []string{"python", "sql", "go"},
		ExperienceMonths: intPtr(12),
		Location:         strPtr("  hyderabad "),
	}

	first, err := Score(candidate, rules)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := Score(candidate, rules)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Score calls differ:\n%+v\n%+v", first, second)
	}
}

func TestScoreSkillMonotonicity(t *testing.T) {
	rules := hiringRuleSet(t)

	base := CandidateRecord{
		Skills:           []string{"Python"},
		ExperienceMonths: intPtr(8),
	}
	superset := base
	superset.Skills = []string{"Python", "SQL"}

	baseResult, err := Score(base, rules)
	if err != nil {
		t.Fatalf("Score base: %v", err)
	}
	supResult, err := Score(superset, rules)
	if err != nil {
		t.Fatalf("Score superset: %v", err)
	}

	if supResult.Total < baseResult.Total {
		t.Errorf("adding a matching skill lowered the score: %d -> %d", baseResult.Total, supResult.Total)
	}
}

func TestScoreRequiredCriterionForcesLowestTier(t *testing.T) {
	rs, err := LoadRuleSet("strict", RuleSetConfig{
		Criteria: []Criterion{
			{ID: "must-have-skills", Field: FieldSkills, Type: TypeSkillsOverlap,
				Weight: 10, Required: true, RequiredSkills: []string{"Rust"}},
			{ID: "experience", Field: FieldExperienceMonths, Type: TypeThreshold,
				Weight: 90, Threshold: 1},
		},
		Tiers: defaultTiers(),
	})
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}

	// Candidate aces the heavy criterion but fails the required one.
	candidate := CandidateRecord{
		Skills:           []string{"Go"},
		ExperienceMonths: intPtr(60),
	}

	result, err := Score(candidate, rs)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if !result.Disqualified {
		t.Error("Disqualified = false, want true")
	}
	if result.Tier != TierReject {
		t.Errorf("Tier = %s, want Reject despite total %d", result.Tier, result.Total)
	}
	if result.Total != 90 {
		t.Errorf("Total = %d, want 90 (breakdown still computed)", result.Total)
	}
}

func TestScoreWeightScaleInvariance(t *testing.T) {
	candidate := CandidateRecord{
		Skills:           []string{"Python"},
		ExperienceMonths: intPtr(8),
		Location:         strPtr("Hyderabad"),
	}

	build := func(scale float64) *RuleSet {
		rs, err := LoadRuleSet("scaled", RuleSetConfig{
			Criteria: []Criterion{
				{ID: "skills", Field: FieldSkills, Type: TypeSkillsOverlap,
					Weight: 50 * scale, RequiredSkills: []string{"Python", "SQL"}},
				{ID: "experience", Field: FieldExperienceMonths, Type: TypeThreshold,
					Weight: 30 * scale, Threshold: 6},
				{ID: "location", Field: FieldLocation, Type: TypeExactMatch,
					Weight: 20 * scale, Expected: "Hyderabad"},
			},
			Tiers: defaultTiers(),
		})
		if err != nil {
			t.Fatalf("LoadRuleSet scale=%v: %v", scale, err)
		}
		return rs
	}

	baseline, err := Score(candidate, build(1))
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	for _, scale := range []float64{0.5, 3, 10} {
		scaled, err := Score(candidate, build(scale))
		if err != nil {
			t.Fatalf("Score scale=%v: %v", scale, err)
		}
		if scaled.Total != baseline.Total {
			t.Errorf("scale %v: Total = %d, want %d", scale, scaled.Total, baseline.Total)
		}
	}
}

func TestScorePartialCredit(t *testing.T) {
	rs, err := LoadRuleSet("partial", RuleSetConfig{
		Criteria: []Criterion{
			{ID: "experience", Field: FieldExperienceMonths, Type: TypeThreshold,
				Weight: 100, Threshold: 24, PartialCredit: 0.5},
		},
		Tiers: defaultTiers(),
	})
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}

	tests := []struct {
		name      string
		months    *int
		wantTotal int
	}{
		{"meets threshold", intPtr(36), 100},
		{"below threshold gets partial credit", intPtr(6), 50},
		{"absent gets zero, not partial credit", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Score(CandidateRecord{ExperienceMonths: tt.months}, rs)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
		})
	}
}

func TestScoreNormalizedMatching(t *testing.T) {
	rules := hiringRuleSet(t)

	candidate := CandidateRecord{
		Skills:           []string{" PYTHON ", "sql"},
		ExperienceMonths: intPtr(6), // boundary: >= threshold
		Location:         strPtr("hyderabad"),
	}

	result, err := Score(candidate, rules)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if result.Total != 100 {
		t.Errorf("Total = %d, want 100 (case/whitespace must not matter)", result.Total)
	}
	if result.Tier != TierShortlist {
		t.Errorf("Tier = %s, want Shortlist", result.Tier)
	}
}

func TestScoreRejectsUnusableRuleSet(t *testing.T) {
	tests := []struct {
		name  string
		rules *RuleSet
	}{
		{"nil rule set", nil},
		{"no criteria", &RuleSet{Name: "empty"}},
		{"zero weights", &RuleSet{
			Name:     "weightless",
			Criteria: []Criterion{{ID: "x", Field: FieldSkills, Type: TypeSkillsOverlap}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(CandidateRecord{}, tt.rules)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, ok := err.(*errors.ConfigurationError); !ok {
				t.Errorf("error type = %T, want *errors.ConfigurationError", err)
			}
		})
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{74.4, 74},
		{74.5, 75},
		{74.6, 75},
		{0, 0},
		{100, 100},
		{33.333333, 33},
		{66.666666, 67},
	}
	for _, tt := range tests {
		if got := roundHalfUp(tt.in); got != tt.want {
			t.Errorf("roundHalfUp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	rules := hiringRuleSet(t)
	candidate := CandidateRecord{
		Skills:           []string{"Python"},
		ExperienceMonths: intPtr(8),
	}

	if candidate.Fingerprint() != candidate.Fingerprint() {
		t.Error("candidate fingerprint is not stable")
	}
	if rules.Fingerprint() != rules.Fingerprint() {
		t.Error("rule set fingerprint is not stable")
	}

	other := candidate
	other.ExperienceMonths = intPtr(9)
	if candidate.Fingerprint() == other.Fingerprint() {
		t.Error("distinct candidates share a fingerprint")
	}
}

func BenchmarkScore(b *testing.B) {
	rs, err := LoadRuleSet("bench", RuleSetConfig{
		Criteria: []Criterion{
			{ID: "skills", Field: FieldSkills, Type: TypeSkillsOverlap,
				Weight: 50, RequiredSkills: []string{"Python", "SQL", "Go", "Kubernetes"}},
			{ID: "experience", Field: FieldExperienceMonths, Type: TypeThreshold,
				Weight: 30, Threshold: 6},
			{ID: "location", Field: FieldLocation, Type: TypeExactMatch,
				Weight: 20, Expected: "Hyderabad"},
		},
		Tiers: defaultTiers(),
	})
	if err != nil {
		b.Fatalf("LoadRuleSet: %v", err)
	}
	candidate := CandidateRecord{
		Skills:           []string{"python", "go", "docker", "terraform"},
		ExperienceMonths: intPtr(30),
		Location:         strPtr("Hyderabad"),
	}

	for b.Loop() {
		_, _ = Score(candidate, rs)
	}
}

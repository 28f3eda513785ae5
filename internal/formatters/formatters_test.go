package formatters

import (
	"encoding/json"
	"strings"
	"testing"

	"resumescreen/internal/pipeline"
	"resumescreen/internal/scoring"
)

func sampleResult() scoring.ScoreResult {
	return scoring.ScoreResult{
		RuleSet: "backend-engineer",
		Total:   75,
		Tier:    scoring.TierShortlist,
		Breakdown: []scoring.CriterionScore{
			{CriterionID: "skills", Field: scoring.FieldSkills, Matched: false,
				Fraction: 0.5, Contribution: 25, Weight: 50},
			{CriterionID: "experience", Field: scoring.FieldExperienceMonths, Matched: true,
				Fraction: 1, Contribution: 30, Weight: 30, Required: true},
			{CriterionID: "location", Field: scoring.FieldLocation, Matched: true,
				Fraction: 1, Contribution: 20, Weight: 20},
		},
	}
}

func TestJSONFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "json")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	var decoded scoring.ScoreResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 75 || decoded.Tier != scoring.TierShortlist {
		t.Errorf("round-trip lost data: %+v", decoded)
	}
}

func TestScoreTextFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "text")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	for _, want := range []string{"Total: 75/100", "Tier: Shortlist", "skills", "(required)"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Disqualified") {
		t.Errorf("text output mentions disqualification for a clean result:\n%s", out)
	}
}

func TestScoreMarkdownFormat(t *testing.T) {
	result := sampleResult()
	result.Disqualified = true
	result.Tier = scoring.TierReject

	out, err := GlobalRegistry.Format(result, "markdown")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	for _, want := range []string{"# Candidate Score", "| Criterion |", "experience *", "required criterion was not met"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q:\n%s", want, out)
		}
	}
}

func TestStatsFormats(t *testing.T) {
	stats := pipeline.Stats{
		Fetched: 10, Scored: 8, Failed: 2, Disqualified: 1, Notified: 8,
		ByTier: map[scoring.Tier]int{
			scoring.TierShortlist: 3,
			scoring.TierReview:    4,
			scoring.TierReject:    1,
		},
	}

	text, err := GlobalRegistry.Format(stats, "text")
	if err != nil {
		t.Fatalf("Format text: %v", err)
	}
	if !strings.Contains(text, "Fetched:      10") || !strings.Contains(text, "Shortlist") {
		t.Errorf("text stats missing fields:\n%s", text)
	}

	md, err := GlobalRegistry.Format(stats, "markdown")
	if err != nil {
		t.Fatalf("Format markdown: %v", err)
	}
	if !strings.Contains(md, "| Shortlist | 3 |") {
		t.Errorf("markdown stats missing tier table:\n%s", md)
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleResult(), "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

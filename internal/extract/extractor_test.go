package extract

import (
	"context"
	"reflect"
	"testing"
)

const sampleResume = `Backend developer passionate about distributed systems

Priya Sharma
priya@example.com

Education: B.Tech in Computer Science, graduated 2021
Location: Hyderabad, India

Experience:
- Software engineer at Acme for 2 years
- Backend intern for 6 months

Skills: Python, SQL, Docker
`

func TestHeuristicExtract(t *testing.T) {
	extractor := NewHeuristicExtractor()
	record, err := extractor.Extract(context.Background(), RawResume{
		Name:  "Priya Sharma",
		Email: "priya@example.com",
		Text:  sampleResume,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !reflect.DeepEqual(record.Skills, []string{"Python", "SQL", "Docker"}) {
		t.Errorf("Skills = %v, want [Python SQL Docker]", record.Skills)
	}
	if record.Education == nil || record.Education.Degree == nil || *record.Education.Degree != "btech" {
		t.Errorf("Education = %+v, want degree btech", record.Education)
	}
	if record.Education.Year == nil || *record.Education.Year != 2021 {
		t.Errorf("Education.Year = %v, want 2021", record.Education.Year)
	}
	if record.Location == nil || *record.Location != "Hyderabad" {
		t.Errorf("Location = %v, want Hyderabad", record.Location)
	}
	if record.ExperienceMonths == nil || *record.ExperienceMonths != 30 {
		t.Errorf("ExperienceMonths = %v, want 30 (2 years + 6 months)", record.ExperienceMonths)
	}
	if record.Tagline == nil || *record.Tagline != "Backend developer passionate about distributed systems" {
		t.Errorf("Tagline = %v, want the first line", record.Tagline)
	}
}

func TestHeuristicExtractEmptyText(t *testing.T) {
	extractor := NewHeuristicExtractor()
	record, err := extractor.Extract(context.Background(), RawResume{
		Name:  "Blank",
		Email: "blank@example.com",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// Nothing detected means nil optionals, not zero values.
	if record.Education != nil || record.Location != nil ||
		record.ExperienceMonths != nil || record.Tagline != nil {
		t.Errorf("empty text should leave optional fields nil, got %+v", record)
	}
	if len(record.Skills) != 0 {
		t.Errorf("Skills = %v, want empty", record.Skills)
	}
}

func TestDetectDegree(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"B.Tech in CS", "btech"},
		{"BTech graduate", "btech"},
		{"Bachelor of Technology", "btech"},
		{"completed my M.Sc last year", "msc"},
		{"holds an MBA from IIM", "mba"},
		{"Master of Business Administration", "mba"},
		{"self-taught programmer", ""},
	}

	for _, tt := range tests {
		if got := detectDegree(tt.text); got != tt.want {
			t.Errorf("detectDegree(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectLocation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"currently based in Hyderabad", "Hyderabad"},
		{"BENGALURU office", "Bengaluru"},
		{"lives in Springfield", ""},
		// Substring matches do not count; the city needs word boundaries.
		{"worked at Delhivery", ""},
	}

	for _, tt := range tests {
		if got := detectLocation(tt.text); got != tt.want {
			t.Errorf("detectLocation(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestEstimateExperienceMonths(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"3 years at Acme", 36},
		{"6 months internship", 6},
		{"2 years backend, then 1 year frontend, intern for 3 months", 39},
		{"fresh graduate", 0},
	}

	for _, tt := range tests {
		if got := estimateExperienceMonths(tt.text); got != tt.want {
			t.Errorf("estimateExperienceMonths(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestDetectTagline(t *testing.T) {
	// A first line that is an email address or very long is not a tagline.
	if got := detectTagline("priya@example.com\nmore text"); got != "" {
		t.Errorf("detectTagline = %q, want empty for an email first line", got)
	}
	if got := detectTagline("\n\n  Data engineer  \nrest"); got != "Data engineer" {
		t.Errorf("detectTagline = %q, want trimmed first non-empty line", got)
	}
}

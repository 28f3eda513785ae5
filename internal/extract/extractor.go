package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"resumescreen/internal/scoring"
)

// RawResume is a candidate row before extraction: contact fields from the
// tracking sheet plus the free-form resume text.
type RawResume struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Text  string `json:"text"`
}

// Extractor turns raw resume text into a structured candidate record.
// Fields that cannot be determined from the text stay nil so the scoring
// engine treats them as absent rather than zero-valued.
type Extractor interface {
	Extract(ctx context.Context, resume RawResume) (scoring.CandidateRecord, error)
}

// degreePatterns maps canonical degree names to the spellings seen in
// resume text. Matching is case-insensitive and tolerant of punctuation,
// so "B.Tech", "BTech" and "Bachelor of Technology" all map to "btech".
var degreePatterns = []struct {
	degree  string
	pattern *regexp.Regexp
}{
	{"btech", regexp.MustCompile(`(?i)\bB\.?\s?Tech\b|Bachelor\s+of\s+Technology`)},
	{"bsc", regexp.MustCompile(`(?i)\bB\.?\s?Sc\b|Bachelor\s+of\s+Science`)},
	{"mtech", regexp.MustCompile(`(?i)\bM\.?\s?Tech\b|Master\s+of\s+Technology`)},
	{"msc", regexp.MustCompile(`(?i)\bM\.?\s?Sc\b|Master\s+of\s+Science`)},
	{"mba", regexp.MustCompile(`(?i)\bMBA\b|Master\s+of\s+Business\s+Administration`)},
}

// locationKeywords are the cities recognized in resume text, checked in
// order. The first match wins.
var locationKeywords = []string{
	"Hyderabad", "Bengaluru", "Bangalore", "Pune", "Chennai", "Mumbai", "Delhi",
}

var (
	yearsPattern      = regexp.MustCompile(`(?i)(\d+)\s+years?`)
	monthsPattern     = regexp.MustCompile(`(?i)(\d+)\s+months?`)
	gradYearPattern   = regexp.MustCompile(`(?i)(?:class\s+of|graduat\w*\s*(?:in)?)[\s:]*((?:19|20)\d{2})`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// HeuristicExtractor extracts candidate fields with regex heuristics. It is
// the default extractor: fully local, deterministic, and good enough for the
// junior-role resumes the pipeline was built around.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates a heuristic extractor.
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

var _ Extractor = (*HeuristicExtractor)(nil)

// Extract implements Extractor.
func (e *HeuristicExtractor) Extract(_ context.Context, resume RawResume) (scoring.CandidateRecord, error) {
	record := scoring.CandidateRecord{
		Name:   resume.Name,
		Email:  resume.Email,
		Skills: detectSkills(resume.Text),
	}

	if degree := detectDegree(resume.Text); degree != "" {
		edu := &scoring.Education{Degree: &degree}
		if year, ok := detectGraduationYear(resume.Text); ok {
			edu.Year = &year
		}
		record.Education = edu
	}

	if location := detectLocation(resume.Text); location != "" {
		record.Location = &location
	}

	if months := estimateExperienceMonths(resume.Text); months > 0 {
		record.ExperienceMonths = &months
	}

	if tagline := detectTagline(resume.Text); tagline != "" {
		record.Tagline = &tagline
	}

	return record, nil
}

// detectDegree returns the first degree pattern found, in pattern order so
// bachelor degrees win over master degrees when both appear.
func detectDegree(text string) string {
	for _, dp := range degreePatterns {
		if dp.pattern.MatchString(text) {
			return dp.degree
		}
	}
	return ""
}

// detectGraduationYear finds a "class of 2021" or "graduated 2021" phrase.
func detectGraduationYear(text string) (int, bool) {
	m := gradYearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// detectLocation returns the first known city mentioned in the text.
func detectLocation(text string) string {
	for _, loc := range locationKeywords {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(loc) + `\b`)
		if pattern.MatchString(text) {
			return loc
		}
	}
	return ""
}

// estimateExperienceMonths sums every "N years" and "M months" phrase in the
// text. Rough, but internship durations and role tenures both count.
func estimateExperienceMonths(text string) int {
	total := 0
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		if y, err := strconv.Atoi(m[1]); err == nil {
			total += y * 12
		}
	}
	for _, m := range monthsPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			total += n
		}
	}
	return total
}

// detectSkills scans a "Skills:" line and splits it on commas. Resumes
// without a skills line yield no skills rather than guessing from prose.
func detectSkills(text string) []string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.HasPrefix(lower, "skills:") && !strings.HasPrefix(lower, "skills ") {
			continue
		}
		_, rest, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		var skills []string
		for _, part := range strings.Split(rest, ",") {
			if skill := strings.TrimSpace(part); skill != "" {
				skills = append(skills, skill)
			}
		}
		return skills
	}
	return nil
}

// detectTagline treats a short first line as the candidate's profile
// tagline, e.g. "Backend developer passionate about distributed systems".
func detectTagline(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
		if trimmed == "" {
			continue
		}
		if len(trimmed) <= 120 && !strings.Contains(trimmed, "@") {
			return trimmed
		}
		return ""
	}
	return ""
}

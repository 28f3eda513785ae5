package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resumescreen/internal/pipeline"
	"resumescreen/internal/scoring"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ScoreResult", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoreResult", &ScoreMarkdownFormatter{})
	registry.RegisterFormatter("text", "Stats", &StatsTextFormatter{})
	registry.RegisterFormatter("markdown", "Stats", &StatsMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case scoring.ScoreResult:
		return "ScoreResult"
	case pipeline.Stats:
		return "Stats"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ScoreTextFormatter handles text formatting for score results
type ScoreTextFormatter struct{}

func (stf *ScoreTextFormatter) Format(data any) (string, error) {
	result, ok := data.(scoring.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected ScoreResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== SCORE ===\n\n")
	output.WriteString(fmt.Sprintf("Rule Set: %s\n", result.RuleSet))
	output.WriteString(fmt.Sprintf("Total: %d/100\n", result.Total))
	output.WriteString(fmt.Sprintf("Tier: %s\n", result.Tier))
	if result.Disqualified {
		output.WriteString("Disqualified: required criterion not met\n")
	}
	output.WriteString("\n=== BREAKDOWN ===\n\n")
	for _, cs := range result.Breakdown {
		marker := " "
		if cs.Matched {
			marker = "x"
		}
		output.WriteString(fmt.Sprintf("[%s] %-20s %6.2f / %.0f", marker, cs.CriterionID, cs.Contribution, cs.Weight))
		if cs.Required {
			output.WriteString("  (required)")
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (stf *ScoreTextFormatter) SupportedType() string {
	return "ScoreResult"
}

// ScoreMarkdownFormatter handles markdown formatting for score results
type ScoreMarkdownFormatter struct{}

func (smf *ScoreMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(scoring.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected ScoreResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Candidate Score\n\n")
	output.WriteString(fmt.Sprintf("**Rule Set:** %s\n\n", result.RuleSet))
	output.WriteString(fmt.Sprintf("**Total:** %d/100\n\n", result.Total))
	output.WriteString(fmt.Sprintf("**Tier:** %s\n\n", result.Tier))
	if result.Disqualified {
		output.WriteString("**Disqualified:** a required criterion was not met\n\n")
	}

	output.WriteString("## Breakdown\n\n")
	output.WriteString("| Criterion | Matched | Fraction | Contribution | Weight |\n")
	output.WriteString("|-----------|---------|----------|--------------|--------|\n")
	for _, cs := range result.Breakdown {
		name := cs.CriterionID
		if cs.Required {
			name += " *"
		}
		output.WriteString(fmt.Sprintf("| %s | %t | %.2f | %.2f | %.0f |\n",
			name, cs.Matched, cs.Fraction, cs.Contribution, cs.Weight))
	}
	output.WriteString("\n\\* required criterion\n")

	return output.String(), nil
}

func (smf *ScoreMarkdownFormatter) SupportedType() string {
	return "ScoreResult"
}

// StatsTextFormatter handles text formatting for batch run statistics
type StatsTextFormatter struct{}

func (stf *StatsTextFormatter) Format(data any) (string, error) {
	stats, ok := data.(pipeline.Stats)
	if !ok {
		return "", fmt.Errorf("expected Stats, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== BATCH SUMMARY ===\n\n")
	output.WriteString(fmt.Sprintf("Fetched:      %d\n", stats.Fetched))
	output.WriteString(fmt.Sprintf("Scored:       %d\n", stats.Scored))
	output.WriteString(fmt.Sprintf("Failed:       %d\n", stats.Failed))
	output.WriteString(fmt.Sprintf("Disqualified: %d\n", stats.Disqualified))
	output.WriteString(fmt.Sprintf("Notified:     %d\n", stats.Notified))

	if len(stats.ByTier) > 0 {
		output.WriteString("\n=== BY TIER ===\n\n")
		for _, tier := range sortedTiers(stats.ByTier) {
			output.WriteString(fmt.Sprintf("%-12s %d\n", tier, stats.ByTier[tier]))
		}
	}

	return output.String(), nil
}

func (stf *StatsTextFormatter) SupportedType() string {
	return "Stats"
}

// StatsMarkdownFormatter handles markdown formatting for batch run statistics
type StatsMarkdownFormatter struct{}

func (smf *StatsMarkdownFormatter) Format(data any) (string, error) {
	stats, ok := data.(pipeline.Stats)
	if !ok {
		return "", fmt.Errorf("expected Stats, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Batch Summary\n\n")
	output.WriteString(fmt.Sprintf("- **Fetched:** %d\n", stats.Fetched))
	output.WriteString(fmt.Sprintf("- **Scored:** %d\n", stats.Scored))
	output.WriteString(fmt.Sprintf("- **Failed:** %d\n", stats.Failed))
	output.WriteString(fmt.Sprintf("- **Disqualified:** %d\n", stats.Disqualified))
	output.WriteString(fmt.Sprintf("- **Notified:** %d\n", stats.Notified))

	if len(stats.ByTier) > 0 {
		output.WriteString("\n## By Tier\n\n")
		output.WriteString("| Tier | Candidates |\n")
		output.WriteString("|------|------------|\n")
		for _, tier := range sortedTiers(stats.ByTier) {
			output.WriteString(fmt.Sprintf("| %s | %d |\n", tier, stats.ByTier[tier]))
		}
	}

	return output.String(), nil
}

func (smf *StatsMarkdownFormatter) SupportedType() string {
	return "Stats"
}

// sortedTiers returns tier keys in a stable order for output.
func sortedTiers(byTier map[scoring.Tier]int) []scoring.Tier {
	tiers := make([]scoring.Tier, 0, len(byTier))
	for tier := range byTier {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()

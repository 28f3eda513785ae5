package scoring

import (
	"fmt"
	"slices"
	"sync"

	"resumescreen/internal/errors"
)

// RuleSetConfig is the structured form a rule set is authored in (YAML under
// viper, or a JSON request body). LoadRuleSet turns it into an immutable
// RuleSet or rejects it with the full violation list.
type RuleSetConfig struct {
	Criteria []Criterion `json:"criteria" mapstructure:"criteria"`
	Tiers    []TierBand  `json:"tiers" mapstructure:"tiers"`
}

// thresholdFields are the selectors a threshold criterion may target.
var thresholdFields = []FieldSelector{FieldExperienceMonths, FieldEducationYear}

// exactMatchFields are the selectors an exact_match criterion may target.
var exactMatchFields = []FieldSelector{FieldLocation, FieldEducationDegree}

// LoadRuleSet validates cfg exhaustively and builds a RuleSet. Validation is
// batched: every violation is collected and reported in one
// *errors.ConfigurationError rather than failing on the first, so the
// operator fixes the config in a single pass. A rule set that loads cleanly
// can never fail at scoring time.
func LoadRuleSet(name string, cfg RuleSetConfig) (*RuleSet, error) {
	var violations []string

	if len(cfg.Criteria) == 0 {
		violations = append(violations, "rule set has no criteria")
	}

	seen := make(map[string]struct{}, len(cfg.Criteria))
	var totalWeight float64
	for i, c := range cfg.Criteria {
		label := c.ID
		if label == "" {
			label = fmt.Sprintf("criteria[%d]", i)
			violations = append(violations, fmt.Sprintf("%s: missing id", label))
		} else if _, dup := seen[c.ID]; dup {
			violations = append(violations, fmt.Sprintf("%s: duplicate criterion id", label))
		}
		seen[c.ID] = struct{}{}

		if !slices.Contains(KnownFields, c.Field) {
			violations = append(violations,
				fmt.Sprintf("%s: unknown field selector %q (known: %v)", label, c.Field, KnownFields))
		}

		if c.Weight <= 0 {
			violations = append(violations,
				fmt.Sprintf("%s: weight must be positive, got %v", label, c.Weight))
		}
		totalWeight += c.Weight

		violations = append(violations, validateCriterionType(label, c)...)
	}

	violations = append(violations, validateTiers(cfg.Tiers)...)

	if len(violations) > 0 {
		return nil, errors.NewConfigurationError(name, violations)
	}

	return &RuleSet{
		Name:        name,
		Criteria:    slices.Clone(cfg.Criteria),
		Tiers:       slices.Clone(cfg.Tiers),
		totalWeight: totalWeight,
	}, nil
}

// validateCriterionType checks the tagged-union parameters for one criterion.
func validateCriterionType(label string, c Criterion) []string {
	var violations []string

	switch c.Type {
	case TypeSkillsOverlap:
		if c.Field != FieldSkills {
			violations = append(violations,
				fmt.Sprintf("%s: skills_overlap only applies to field %q, got %q", label, FieldSkills, c.Field))
		}
		if len(c.RequiredSkills) == 0 {
			violations = append(violations,
				fmt.Sprintf("%s: skills_overlap requires a non-empty requiredSkills list", label))
		}
	case TypeThreshold:
		if !slices.Contains(thresholdFields, c.Field) {
			violations = append(violations,
				fmt.Sprintf("%s: threshold only applies to numeric fields %v, got %q", label, thresholdFields, c.Field))
		}
		if c.PartialCredit < 0 || c.PartialCredit >= 1 {
			violations = append(violations,
				fmt.Sprintf("%s: partialCredit must be in [0,1), got %v", label, c.PartialCredit))
		}
	case TypeExactMatch:
		if !slices.Contains(exactMatchFields, c.Field) {
			violations = append(violations,
				fmt.Sprintf("%s: exact_match only applies to fields %v, got %q", label, exactMatchFields, c.Field))
		}
		if c.Expected == "" {
			violations = append(violations,
				fmt.Sprintf("%s: exact_match requires a non-empty expected value", label))
		}
	default:
		violations = append(violations,
			fmt.Sprintf("%s: unknown criterion type %q", label, c.Type))
	}

	return violations
}

// validateTiers checks that the threshold table is ordered by strictly
// descending minimum and covers [0,100] without gaps: the first band must
// admit 100 and the last must reach down to 0.
func validateTiers(tiers []TierBand) []string {
	var violations []string

	if len(tiers) == 0 {
		return []string{"tier table is empty"}
	}

	for i, band := range tiers {
		if band.Tier == "" {
			violations = append(violations, fmt.Sprintf("tiers[%d]: missing tier name", i))
		}
		if band.Min < 0 || band.Min > 100 {
			violations = append(violations,
				fmt.Sprintf("tiers[%d]: min %d outside [0,100]", i, band.Min))
		}
		if i > 0 && band.Min >= tiers[i-1].Min {
			violations = append(violations,
				fmt.Sprintf("tiers[%d]: min %d not strictly below previous band (%d); table must be monotonic",
					i, band.Min, tiers[i-1].Min))
		}
	}

	if tiers[len(tiers)-1].Min != 0 {
		violations = append(violations,
			fmt.Sprintf("tier table does not cover the full score range: lowest band starts at %d, want 0",
				tiers[len(tiers)-1].Min))
	}

	return violations
}

// Registry holds the loaded rule sets, one per job posting. Loads are
// all-or-nothing per name: a rejected config never displaces a previously
// loaded rule set, so a bad edit blocks scoring for that posting only.
type Registry struct {
	mu       sync.RWMutex
	ruleSets map[string]*RuleSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ruleSets: make(map[string]*RuleSet)}
}

// Load validates and installs a rule set under the given name.
func (r *Registry) Load(name string, cfg RuleSetConfig) (*RuleSet, error) {
	rs, err := LoadRuleSet(name, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.ruleSets[name] = rs
	r.mu.Unlock()
	return rs, nil
}

// Get returns the rule set for a job posting, or an error if none is loaded.
func (r *Registry) Get(name string) (*RuleSet, error) {
	r.mu.RLock()
	rs, ok := r.ruleSets[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.NewConfigError(errors.ErrCodeRuleSetNotFound,
			fmt.Sprintf("no rule set loaded for %q", name), nil)
	}
	return rs, nil
}

// Names returns the loaded rule set names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ruleSets))
	for name := range r.ruleSets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

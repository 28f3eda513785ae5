package scoring

// FieldSelector names the candidate attribute a criterion inspects. The set
// is closed: the loader rejects any selector outside it.
type FieldSelector string

const (
	FieldSkills           FieldSelector = "skills"
	FieldEducationDegree  FieldSelector = "education_degree"
	FieldEducationYear    FieldSelector = "education_year"
	FieldExperienceMonths FieldSelector = "experience_months"
	FieldLocation         FieldSelector = "location"
)

// KnownFields lists every valid field selector, in a stable order.
var KnownFields = []FieldSelector{
	FieldSkills,
	FieldEducationDegree,
	FieldEducationYear,
	FieldExperienceMonths,
	FieldLocation,
}

// CriterionType selects the matching predicate. Criteria are declarative
// data dispatched on this tag, not behavior attached to subtypes, so a rule
// set can be authored and edited without redeploying the engine.
type CriterionType string

const (
	TypeSkillsOverlap CriterionType = "skills_overlap"
	TypeThreshold     CriterionType = "threshold"
	TypeExactMatch    CriterionType = "exact_match"
)

// Criterion is one scoring rule: a field selector, a predicate, a weight and
// an optional required flag. The type-specific parameters are a tagged union
// keyed on Type; only the parameters for the declared type are consulted.
type Criterion struct {
	ID       string        `json:"id" mapstructure:"id"`
	Field    FieldSelector `json:"field" mapstructure:"field"`
	Type     CriterionType `json:"type" mapstructure:"type"`
	Weight   float64       `json:"weight" mapstructure:"weight"`
	Required bool          `json:"required,omitempty" mapstructure:"required"`

	// skills_overlap
	RequiredSkills []string `json:"requiredSkills,omitempty" mapstructure:"requiredSkills"`

	// threshold
	Threshold     int     `json:"threshold,omitempty" mapstructure:"threshold"`
	PartialCredit float64 `json:"partialCredit,omitempty" mapstructure:"partialCredit"`

	// exact_match
	Expected string `json:"expected,omitempty" mapstructure:"expected"`
}

// RuleSet is one job posting's requirements: an ordered criterion list plus
// the decision-tier table. Instances produced by the loader are immutable
// and safe to share across concurrent Score calls without locking.
type RuleSet struct {
	Name     string      `json:"name"`
	Criteria []Criterion `json:"criteria"`
	Tiers    []TierBand  `json:"tiers"`

	// totalWeight is fixed at load time so contributions normalize the same
	// way on every call.
	totalWeight float64
}

// TotalWeight returns the sum of all criterion weights.
func (rs *RuleSet) TotalWeight() float64 {
	return rs.totalWeight
}

// LowestTier returns the tier forced by a failed required criterion: the
// last band of the descending table.
func (rs *RuleSet) LowestTier() Tier {
	if len(rs.Tiers) == 0 {
		return TierReject
	}
	return rs.Tiers[len(rs.Tiers)-1].Tier
}

// TierFor maps a total score to its band.
func (rs *RuleSet) TierFor(total int) Tier {
	for _, band := range rs.Tiers {
		if total >= band.Min {
			return band.Tier
		}
	}
	return rs.LowestTier()
}

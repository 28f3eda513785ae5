package scoring

// CandidateRecord is the structured output of a resume extractor. Extraction
// is best-effort: any field may be missing, so optional fields are pointers
// (nil means the extractor could not recover the value). Sentinel values such
// as an empty string or -1 are never used for absence.
type CandidateRecord struct {
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Skills           []string   `json:"skills,omitempty"`
	Education        *Education `json:"education,omitempty"`
	ExperienceMonths *int       `json:"experienceMonths,omitempty"`
	Location         *string    `json:"location,omitempty"`
	Tagline          *string    `json:"tagline,omitempty"`
}

// Education holds the structured education fields; each is independently
// optional because extractors frequently recover only part of the block.
type Education struct {
	Degree *string `json:"degree,omitempty"`
	Field  *string `json:"field,omitempty"`
	Year   *int    `json:"year,omitempty"`
}

// Tier is a coarse decision bucket derived from the total score.
type Tier string

const (
	TierShortlist Tier = "Shortlist"
	TierReview    Tier = "Review"
	TierReject    Tier = "Reject"
)

// TierBand maps a minimum score to a tier. Bands in a rule set are ordered
// by descending Min and must cover the full [0,100] range without gaps.
type TierBand struct {
	Tier Tier `json:"tier" mapstructure:"tier"`
	Min  int  `json:"min" mapstructure:"min"`
}

// CriterionScore is one row of the per-criterion breakdown.
type CriterionScore struct {
	CriterionID  string        `json:"criterionId"`
	Field        FieldSelector `json:"field"`
	Matched      bool          `json:"matched"`
	Fraction     float64       `json:"fraction"`
	Contribution float64       `json:"contribution"`
	Weight       float64       `json:"weight"`
	Required     bool          `json:"required,omitempty"`
}

// ScoreResult is the outcome of scoring one candidate against one rule set.
type ScoreResult struct {
	RuleSet      string           `json:"ruleSet"`
	Total        int              `json:"total"`
	Tier         Tier             `json:"tier"`
	Disqualified bool             `json:"disqualified"`
	Breakdown    []CriterionScore `json:"breakdown"`
}

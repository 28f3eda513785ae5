package scoring

import (
	"math"
	"strings"

	"resumescreen/internal/errors"
)

// Score evaluates a candidate against a rule set. It is a pure function of
// its inputs: no I/O, no shared state, identical inputs yield identical
// results, so calls may run concurrently across candidates.
//
// Missing candidate fields contribute zero to their criterion and never
// produce an error. Given a rule set that passed LoadRuleSet, Score is
// total; the only error path is a structurally unusable rule set (empty, or
// a non-positive weight sum), reported as *errors.ConfigurationError.
func Score(candidate CandidateRecord, rules *RuleSet) (ScoreResult, error) {
	if rules == nil || len(rules.Criteria) == 0 {
		return ScoreResult{}, errors.NewConfigurationError(ruleSetName(rules),
			[]string{"rule set has no criteria"})
	}

	totalWeight := rules.totalWeight
	if totalWeight <= 0 {
		// Rule sets built outside the loader still get a defined weight sum.
		for _, c := range rules.Criteria {
			totalWeight += c.Weight
		}
	}
	if totalWeight <= 0 {
		return ScoreResult{}, errors.NewConfigurationError(rules.Name,
			[]string{"criterion weights sum to zero"})
	}

	result := ScoreResult{
		RuleSet:   rules.Name,
		Breakdown: make([]CriterionScore, 0, len(rules.Criteria)),
	}

	var sum float64
	for _, criterion := range rules.Criteria {
		matched, fraction := evaluate(candidate, criterion)
		contribution := fraction * criterion.Weight

		if criterion.Required && !matched {
			// Keep computing the breakdown so the caller can see why the
			// candidate was disqualified.
			result.Disqualified = true
		}

		sum += contribution
		result.Breakdown = append(result.Breakdown, CriterionScore{
			CriterionID:  criterion.ID,
			Field:        criterion.Field,
			Matched:      matched,
			Fraction:     fraction,
			Contribution: contribution,
			Weight:       criterion.Weight,
			Required:     criterion.Required,
		})
	}

	result.Total = roundHalfUp(sum / totalWeight * 100)
	if result.Disqualified {
		result.Tier = rules.LowestTier()
	} else {
		result.Tier = rules.TierFor(result.Total)
	}

	return result, nil
}

// evaluate applies one criterion's predicate and returns whether it matched
// and the fraction of its weight earned.
func evaluate(candidate CandidateRecord, criterion Criterion) (matched bool, fraction float64) {
	switch criterion.Type {
	case TypeSkillsOverlap:
		return evaluateSkillsOverlap(candidate.Skills, criterion.RequiredSkills)
	case TypeThreshold:
		value, ok := numericField(candidate, criterion.Field)
		if !ok {
			return false, 0
		}
		if value >= criterion.Threshold {
			return true, 1
		}
		return false, criterion.PartialCredit
	case TypeExactMatch:
		value, ok := textField(candidate, criterion.Field)
		if !ok {
			return false, 0
		}
		if normalize(value) == normalize(criterion.Expected) {
			return true, 1
		}
		return false, 0
	}
	return false, 0
}

// evaluateSkillsOverlap credits the overlap fraction between the candidate's
// skills and the required set. Matched means the full required set is
// covered; a partial overlap still earns its proportional contribution.
func evaluateSkillsOverlap(have, want []string) (bool, float64) {
	if len(want) == 0 || len(have) == 0 {
		return false, 0
	}

	haveSet := make(map[string]struct{}, len(have))
	for _, s := range have {
		haveSet[normalize(s)] = struct{}{}
	}

	// Deduplicate the required side so a repeated skill cannot inflate the
	// denominator or the overlap count.
	wantSet := make(map[string]struct{}, len(want))
	for _, s := range want {
		wantSet[normalize(s)] = struct{}{}
	}

	overlap := 0
	for s := range wantSet {
		if _, ok := haveSet[s]; ok {
			overlap++
		}
	}

	fraction := float64(overlap) / float64(len(wantSet))
	if fraction > 1 {
		fraction = 1
	}
	return overlap == len(wantSet), fraction
}

// numericField resolves an integer-valued candidate attribute. The second
// return is false when the field is absent.
func numericField(candidate CandidateRecord, field FieldSelector) (int, bool) {
	switch field {
	case FieldExperienceMonths:
		if candidate.ExperienceMonths == nil {
			return 0, false
		}
		return *candidate.ExperienceMonths, true
	case FieldEducationYear:
		if candidate.Education == nil || candidate.Education.Year == nil {
			return 0, false
		}
		return *candidate.Education.Year, true
	}
	return 0, false
}

// textField resolves a string-valued candidate attribute. The second return
// is false when the field is absent.
func textField(candidate CandidateRecord, field FieldSelector) (string, bool) {
	switch field {
	case FieldLocation:
		if candidate.Location == nil {
			return "", false
		}
		return *candidate.Location, true
	case FieldEducationDegree:
		if candidate.Education == nil || candidate.Education.Degree == nil {
			return "", false
		}
		return *candidate.Education.Degree, true
	}
	return "", false
}

// normalize lower-cases and collapses internal whitespace so "New  York" and
// "new york" compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// roundHalfUp rounds to the nearest integer with ties going up, the policy
// fixed for total scores.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func ruleSetName(rs *RuleSet) string {
	if rs == nil {
		return ""
	}
	return rs.Name
}

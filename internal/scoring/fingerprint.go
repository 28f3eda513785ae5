package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint returns a stable hex digest of the candidate record. Because
// Score is deterministic, (candidate fingerprint, rule set fingerprint)
// identifies a ScoreResult and can be used as a cache or dedupe key.
func (c CandidateRecord) Fingerprint() string {
	return digest(c)
}

// Fingerprint returns a stable hex digest of the rule set.
func (rs *RuleSet) Fingerprint() string {
	return digest(struct {
		Name     string      `json:"name"`
		Criteria []Criterion `json:"criteria"`
		Tiers    []TierBand  `json:"tiers"`
	}{rs.Name, rs.Criteria, rs.Tiers})
}

// digest hashes the canonical JSON encoding. encoding/json emits struct
// fields in declaration order and omits nil optionals, which is canonical
// enough for identical in-memory values to hash identically.
func digest(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only unmarshalable types reach here; none of ours are.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package retrieval

// ConfidenceLabel is the tier assigned to a retrieved passage from its
// relevance score.
type ConfidenceLabel string

const (
	LabelAbstain            ConfidenceLabel = "abstain"
	LabelProcessWithCaution ConfidenceLabel = "process_with_caution"
	LabelProcessConfident   ConfidenceLabel = "process_confident"
)

// Thresholds are the two cut points of the labeling function.
type Thresholds struct {
	AbstainMax   float64
	ConfidentMin float64
}

// DefaultThresholds returns the production cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{AbstainMax: 0.5, ConfidentMin: 0.85}
}

// AssignConfidence labels a score. Pure function of (score, thresholds):
// score < AbstainMax is abstain, score >= ConfidentMin is confident,
// everything between is caution. The boundaries land exactly as written:
// 0.5 is caution, 0.85 is confident.
func AssignConfidence(score float64, t Thresholds) ConfidenceLabel {
	switch {
	case score < t.AbstainMax:
		return LabelAbstain
	case score >= t.ConfidentMin:
		return LabelProcessConfident
	default:
		return LabelProcessWithCaution
	}
}

var guidanceByLabel = map[ConfidenceLabel]string{
	LabelAbstain:            "Relevance too low; do not rely on this passage.",
	LabelProcessWithCaution: "Moderately relevant; verify details against the cited document before acting.",
	LabelProcessConfident:   "Strong match; answer may be grounded directly on this passage.",
}

// Guidance returns the deterministic instruction string for a label.
func Guidance(label ConfidenceLabel) string {
	return guidanceByLabel[label]
}

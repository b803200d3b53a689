package retrieval

import "math"

// BlendParams are the tunable constants of the blend formula. They are
// hand-tuned; nothing downstream assumes more than monotonicity in the
// intent score, so deployments may override them.
type BlendParams struct {
	HierarchicalWeight float64
	FactualWeight      float64
	ConfidenceBase     float64
	ConfidenceSlope    float64
	MaxPerStrategy     int
}

// DefaultBlendParams returns the production defaults.
func DefaultBlendParams() BlendParams {
	return BlendParams{
		HierarchicalWeight: 5,
		FactualWeight:      10,
		ConfidenceBase:     0.5,
		ConfidenceSlope:    0.3,
		MaxPerStrategy:     10,
	}
}

// BlendSpec is the retrieval mix requested for one sub-question.
type BlendSpec struct {
	NHierarchical int
	NFactual      int
	ConfidenceMin float64
}

// Blend maps an intent score in [0,1] onto a retrieval mix. Score 0 is a
// canonical process question (hierarchy-heavy), 1 a pure fact lookup.
// Pure function:
//
//	n_hierarchical = clamp(round(w_h * (1-score)), 0, max)
//	n_factual      = clamp(round(w_f * score), 0, max)
//	confidence_min = clamp(base + slope*score, 0, 1)
func (p BlendParams) Blend(score float64) BlendSpec {
	return BlendSpec{
		NHierarchical: clampInt(int(math.Round(p.HierarchicalWeight*(1-score))), 0, p.MaxPerStrategy),
		NFactual:      clampInt(int(math.Round(p.FactualWeight*score)), 0, p.MaxPerStrategy),
		ConfidenceMin: clampFloat(p.ConfidenceBase+p.ConfidenceSlope*score, 0, 1),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

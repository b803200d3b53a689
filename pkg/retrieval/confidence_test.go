package retrieval

import "testing"

func TestAssignConfidence(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  ConfidenceLabel
	}{
		{0.0, LabelAbstain},
		{0.49999, LabelAbstain},
		{0.5, LabelProcessWithCaution}, // boundary: inclusive on the caution side
		{0.7, LabelProcessWithCaution},
		{0.84999, LabelProcessWithCaution},
		{0.85, LabelProcessConfident}, // boundary: inclusive on the confident side
		{0.99, LabelProcessConfident},
		{1.0, LabelProcessConfident},
	}

	for _, tt := range tests {
		if got := AssignConfidence(tt.score, th); got != tt.want {
			t.Errorf("AssignConfidence(%f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAssignConfidenceIdempotent(t *testing.T) {
	th := DefaultThresholds()
	for i := 0; i <= 20; i++ {
		s := float64(i) / 20
		first := AssignConfidence(s, th)
		second := AssignConfidence(s, th)
		if first != second {
			t.Errorf("AssignConfidence(%f) not stable: %s then %s", s, first, second)
		}
	}
}

func TestGuidanceDeterministic(t *testing.T) {
	for _, label := range []ConfidenceLabel{LabelAbstain, LabelProcessWithCaution, LabelProcessConfident} {
		if Guidance(label) == "" {
			t.Errorf("Guidance(%s) is empty", label)
		}
		if Guidance(label) != Guidance(label) {
			t.Errorf("Guidance(%s) not deterministic", label)
		}
	}
}

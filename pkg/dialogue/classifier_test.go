package dialogue

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		openSlots   []string
		lastRefined string
		want        TurnClass
	}{
		{
			name:      "payer reply after clarification",
			message:   "Acme Health",
			openSlots: []string{"jurisdiction.payor"},
			want:      TurnSlotFill,
		},
		{
			name:      "state reply after clarification",
			message:   "Minnesota",
			openSlots: []string{"jurisdiction.state"},
			want:      TurnSlotFill,
		},
		{
			name:      "short affirmation fills slot",
			message:   "yes, same one",
			openSlots: []string{"jurisdiction.payor"},
			want:      TurnSlotFill,
		},
		{
			name:        "short refinement without open slots",
			message:     "for providers",
			lastRefined: "How do I file an appeal? for Acme Health",
			want:        TurnSlotFill,
		},
		{
			name:      "question shaped message is new question",
			message:   "How do I file an appeal?",
			openSlots: []string{"jurisdiction.payor"},
			want:      TurnNewQuestion,
		},
		{
			name:        "interrogative override beats refinement",
			message:     "what about timely filing limits",
			lastRefined: "appeal process for Acme Health",
			want:        TurnNewQuestion,
		},
		{
			name:      "explicit new topic",
			message:   "new question about claim denials",
			openSlots: []string{"jurisdiction.payor"},
			want:      TurnNewQuestion,
		},
		{
			name:      "long message is new question even with open slots",
			message:   "I would like to understand the whole prior authorization workflow",
			openSlots: []string{"jurisdiction.payor"},
			want:      TurnNewQuestion,
		},
		{
			name:    "no context defaults to new question",
			message: "appeal",
			want:    TurnNewQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.message, tt.openSlots, tt.lastRefined)
			if got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.message, got, tt.want)
			}
		})
	}
}

package planner

import "testing"

func TestDecomposeSplitsOnSeparators(t *testing.T) {
	p := New(DefaultConfig())

	plan := p.Decompose("How do I file an appeal and what is the timely filing deadline?")
	if len(plan.SubQuestions) != 2 {
		t.Fatalf("got %d sub-questions, want 2: %+v", len(plan.SubQuestions), plan.SubQuestions)
	}
	if plan.SubQuestions[0].ID != "sq-1" || plan.SubQuestions[1].ID != "sq-2" {
		t.Errorf("ids = %s, %s; want sq-1, sq-2", plan.SubQuestions[0].ID, plan.SubQuestions[1].ID)
	}
	if plan.SubQuestions[0].QuestionIntent != IntentCanonical {
		t.Errorf("first fragment intent = %s, want canonical", plan.SubQuestions[0].QuestionIntent)
	}
	if plan.SubQuestions[1].QuestionIntent != IntentFactual {
		t.Errorf("second fragment intent = %s, want factual", plan.SubQuestions[1].QuestionIntent)
	}
}

func TestDecomposeCollapsesEmptySplits(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.Decompose("and")
	if len(plan.SubQuestions) != 1 {
		t.Fatalf("got %d sub-questions, want 1", len(plan.SubQuestions))
	}
}

func TestDecomposeEmptyMessageFallsBack(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.Decompose("   ")
	if !plan.Fallback {
		t.Error("expected fallback plan for blank message")
	}
	if len(plan.SubQuestions) != 1 || plan.SubQuestions[0].Kind != KindNonPatient {
		t.Errorf("fallback plan = %+v", plan.SubQuestions)
	}
}

func TestClassifyPatientAndTool(t *testing.T) {
	p := New(DefaultConfig())

	plan := p.Decompose("what is the status of my claim")
	if plan.SubQuestions[0].Kind != KindPatient {
		t.Errorf("kind = %s, want patient", plan.SubQuestions[0].Kind)
	}

	plan = p.Decompose("search the web for the 2025 fee schedule")
	if plan.SubQuestions[0].Kind != KindTool {
		t.Errorf("kind = %s, want tool", plan.SubQuestions[0].Kind)
	}
}

func TestIntentScoreBounds(t *testing.T) {
	p := New(DefaultConfig())
	messages := []string{
		"how do i submit the prior authorization process steps workflow",
		"what is the limit deadline rate code threshold maximum 123",
		"tell me something",
	}
	for _, msg := range messages {
		plan := p.Decompose(msg)
		for _, sq := range plan.SubQuestions {
			if sq.IntentScore < 0 || sq.IntentScore > 1 {
				t.Errorf("message %q: score %f out of [0,1]", msg, sq.IntentScore)
			}
		}
	}
}

func TestFactualGetsEscalationDirective(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.Decompose("what is the timely filing deadline")
	sq := plan.SubQuestions[0]
	if sq.QuestionIntent != IntentFactual {
		t.Fatalf("intent = %s, want factual", sq.QuestionIntent)
	}
	if len(sq.OnRAGFail) == 0 || sq.OnRAGFail[0] != "google_search" {
		t.Errorf("OnRAGFail = %v, want google_search directive", sq.OnRAGFail)
	}
}

func TestBuildBlueprint(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.Decompose("how do i file an appeal and what is the timely filing deadline and what is the status of my claim")

	bp := BuildBlueprint(plan, 6)
	if len(bp.Entries) != len(plan.SubQuestions) {
		t.Fatalf("entries = %d, want %d", len(bp.Entries), len(plan.SubQuestions))
	}

	for i, entry := range bp.Entries {
		sq := plan.SubQuestions[i]
		switch sq.Kind {
		case KindPatient:
			if entry.Agent != AgentPatientStub || entry.Sensitivity != SensitivityHigh {
				t.Errorf("patient entry = %+v", entry)
			}
			if entry.RAGK != 0 {
				t.Errorf("patient entry has RAGK %d, want 0 (non-RAG)", entry.RAGK)
			}
		case KindTool:
			if entry.Agent != AgentTool {
				t.Errorf("tool entry = %+v", entry)
			}
		default:
			if entry.Agent != AgentRAG {
				t.Errorf("non_patient entry = %+v", entry)
			}
			if entry.RAGK != 6 {
				t.Errorf("RAGK = %d, want 6", entry.RAGK)
			}
			want := SensitivityLow
			if sq.QuestionIntent == IntentFactual {
				want = SensitivityMedium
			}
			if entry.Sensitivity != want {
				t.Errorf("sensitivity = %s, want %s", entry.Sensitivity, want)
			}
		}
	}
}

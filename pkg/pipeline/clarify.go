package pipeline

import (
	"math"
	"strings"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/planner"
)

const (
	slotJurisdictionPayer = "jurisdiction.payor"

	vagueMaxTokens   = 2
	broadMinSubCount = 3

	// The intent scorer maps questions onto [0,1]: 0 is a pure process
	// question, 1 a pure fact lookup. Scores near the midpoint mean the
	// retrieval mix would be a coin flip, so the user is asked to
	// disambiguate instead.
	ambiguousMidpoint       = 0.5
	DefaultAmbiguityEpsilon = 0.05
)

const clarificationAsk = "Before I can answer, I need to know which payer this is about. " +
	"Which insurance company or plan does your question concern? If it applies, the state " +
	"and program (Medicaid, Medicare, CHIP, commercial) help too."

const refinementVagueAsk = "That question is a bit too short for me to answer reliably. " +
	"Could you say a little more about what you want to know?"

const refinementBroadAsk = "That covers several separate questions at once. Could you " +
	"narrow it down to the one or two you need answered first?"

const refinementAmbiguousAsk = "I can read that question more than one way: are you " +
	"after the step-by-step process, or a specific figure such as a deadline or limit? " +
	"Point me at one and I can give a much better answer."

// clarifyGate runs after planning and before resolution. The jurisdiction
// check takes priority over the refinement check: a vague question with no
// payer gets the payer ask first, with the question saved for resumption.
// A nil return means the run proceeds to resolution.
func (o *Orchestrator) clarifyGate(rc *RunContext, msg dto.AskMessage) *dto.ResponsePayload {
	if needsCorpus(rc.Blueprint) && !rc.State.HasJurisdiction() {
		o.thinking(rc, "jurisdiction unknown, asking for payer")

		slots := []string{slotJurisdictionPayer}
		intent := rc.BaseQuestion
		dialogue.ApplyDelta(rc.State, dialogue.StateDelta{
			OpenSlots:      &slots,
			LastUserIntent: &intent,
		})
		o.states.Save(rc.ThreadID.String(), rc.State)

		return o.terminal(msg, dto.StatusClarification, clarificationAsk)
	}

	if ask := refinementAsk(rc.Plan, rc.Blueprint, rc.BaseQuestion, o.ambiguityEpsilon); ask != "" {
		o.thinking(rc, "question needs refinement")
		o.states.Save(rc.ThreadID.String(), rc.State)
		return o.terminal(msg, dto.StatusRefinementAsk, ask)
	}

	return nil
}

// needsCorpus reports whether any sub-question will hit the policy corpus.
// Pure tool or patient questions don't require a jurisdiction.
func needsCorpus(bp *planner.Blueprint) bool {
	for _, entry := range bp.Entries {
		if entry.Agent == planner.AgentRAG {
			return true
		}
	}
	return false
}

// refinementAsk returns the refinement prompt for an unanswerable plan:
// three or more sub-questions are too broad to answer in one turn, a
// near-empty base question is too vague, and a corpus-bound sub-question
// whose intent score sits within epsilon of the midpoint is too ambiguous
// to pick a retrieval mix for. Vagueness is judged on the base question,
// before the jurisdiction suffix pads it out. Empty string means the plan
// is answerable.
func refinementAsk(plan *planner.Plan, bp *planner.Blueprint, baseQuestion string, epsilon float64) string {
	if len(plan.SubQuestions) >= broadMinSubCount {
		return refinementBroadAsk
	}
	if len(plan.SubQuestions) == 1 {
		if len(strings.Fields(baseQuestion)) <= vagueMaxTokens {
			return refinementVagueAsk
		}
	}
	for i, entry := range bp.Entries {
		if entry.Agent != planner.AgentRAG || i >= len(plan.SubQuestions) {
			continue
		}
		if math.Abs(plan.SubQuestions[i].IntentScore-ambiguousMidpoint) <= epsilon {
			return refinementAmbiguousAsk
		}
	}
	return ""
}

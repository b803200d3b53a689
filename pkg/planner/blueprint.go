package planner

// AgentKind selects the answering strategy for one sub-question.
type AgentKind string

const (
	AgentRAG         AgentKind = "rag"
	AgentPatientStub AgentKind = "patient_stub"
	AgentTool        AgentKind = "tool"
	AgentReasoning   AgentKind = "reasoning"
)

// Sensitivity grades how carefully a sub-question must be handled.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// RetrievalConfig carries per-entry retrieval tuning for RAG-routed entries.
type RetrievalConfig struct {
	K               int
	ExpandNeighbors bool
}

// BlueprintEntry is the execution directive derived for one sub-question.
type BlueprintEntry struct {
	SubQuestionID string
	Agent         AgentKind
	Sensitivity   Sensitivity
	RAGK          int
	Retrieval     RetrievalConfig
}

// Blueprint pairs each sub-question with its execution directive, in plan
// order.
type Blueprint struct {
	Entries []BlueprintEntry
}

// DefaultRAGK is the retrieval depth applied to RAG-routed entries when the
// caller does not override it.
const DefaultRAGK = 8

// BuildBlueprint derives the execution directives deterministically from the
// plan. The plan itself is not mutated.
func BuildBlueprint(plan *Plan, ragK int) *Blueprint {
	if ragK <= 0 {
		ragK = DefaultRAGK
	}
	bp := &Blueprint{}
	for _, sq := range plan.SubQuestions {
		entry := BlueprintEntry{
			SubQuestionID: sq.ID,
			Agent:         agentFor(sq),
			Sensitivity:   sensitivityFor(sq),
		}
		if entry.Agent == AgentRAG {
			entry.RAGK = ragK
			entry.Retrieval = RetrievalConfig{K: ragK, ExpandNeighbors: true}
		}
		bp.Entries = append(bp.Entries, entry)
	}
	return bp
}

func agentFor(sq SubQuestion) AgentKind {
	switch sq.Kind {
	case KindPatient:
		return AgentPatientStub
	case KindTool:
		return AgentTool
	default:
		return AgentRAG
	}
}

func sensitivityFor(sq SubQuestion) Sensitivity {
	switch {
	case sq.Kind == KindPatient:
		return SensitivityHigh
	case sq.QuestionIntent == IntentFactual:
		return SensitivityMedium
	default:
		return SensitivityLow
	}
}

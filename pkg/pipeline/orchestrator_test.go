package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/agent"
	"ai-policyqa-be/pkg/corpus"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/llm"
	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/retrieval"
	"ai-policyqa-be/pkg/websearch"
)

type fakeSink struct {
	payloads []*dto.ResponsePayload
}

func (s *fakeSink) PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error {
	s.payloads = append(s.payloads, payload)
	return nil
}

type fixedProvider struct {
	answer string
}

func (p *fixedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, llm.Usage, error) {
	return p.answer, llm.Usage{PromptTokens: 20, CompletionTokens: 10}, nil
}

func (p *fixedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, llm.Usage, error) {
	return p.Chat(ctx, nil, options...)
}

func (p *fixedProvider) StreamGenerate(ctx context.Context, prompt string, options ...llm.Option) (<-chan string, error) {
	out := make(chan string, 1)
	out <- p.answer
	close(out)
	return out, nil
}

type fixedSearcher struct {
	candidates []corpus.Candidate
}

func (s *fixedSearcher) Search(ctx context.Context, query string, k int, sourceTypes []string, minScore float64) ([]corpus.Candidate, error) {
	var out []corpus.Candidate
	for _, c := range s.candidates {
		if c.Score >= minScore {
			out = append(out, c)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *fixedSearcher) FetchNeighbors(ctx context.Context, documentID string, pageNumber int, radius int) ([]corpus.Candidate, error) {
	return nil, nil
}

func (s *fixedSearcher) SupportsTypeFilter() bool { return true }

type harness struct {
	orchestrator *Orchestrator
	states       dialogue.StateStore
	progress     progress.Store
	sink         *fakeSink
}

func newHarness(t *testing.T, searcher corpus.Searcher, answer string) *harness {
	t.Helper()
	states := dialogue.NewCacheStore()
	prog := progress.NewMemoryStore()
	sink := &fakeSink{}
	assembler := retrieval.NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger())
	router := agent.NewRouter(assembler, &fixedProvider{answer: answer}, &websearch.StaticClient{}, logger.NewNopLogger())

	orch := NewOrchestrator(
		states,
		dialogue.NewExtractor([]string{"Acme Health"}),
		planner.New(planner.DefaultConfig()),
		router,
		prog,
		sink,
		logger.NewNopLogger(),
	)
	return &harness{orchestrator: orch, states: states, progress: prog, sink: sink}
}

func policyCorpus() *fixedSearcher {
	return &fixedSearcher{candidates: []corpus.Candidate{
		{ID: "c1", Text: "Claims must be submitted within 90 days of the date of service.",
			DocumentID: "d1", DocumentName: "Provider Manual", PageNumber: 12,
			SourceType: "policy", Score: 0.92},
	}}
}

func ask(threadID uuid.UUID, message string) dto.AskMessage {
	return dto.AskMessage{CorrelationId: uuid.New(), ThreadId: threadID, Message: message}
}

// Full jurisdiction in the first message: straight through to completed.
func TestRunAnswersWhenJurisdictionKnown(t *testing.T) {
	h := newHarness(t, policyCorpus(), "Claims must be filed within 90 days [1].")
	msg := ask(uuid.New(), "What is the timely filing deadline for Acme Health in minnesota medicaid?")

	h.orchestrator.Execute(context.Background(), msg)

	if len(h.sink.payloads) != 1 {
		t.Fatalf("published %d payloads, want exactly 1", len(h.sink.payloads))
	}
	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusCompleted {
		t.Fatalf("status = %s, want completed", payload.Status)
	}
	if payload.CorrelationId != msg.CorrelationId {
		t.Error("payload carries wrong correlation id")
	}
	if len(payload.Sources) == 0 {
		t.Error("completed answer has no sources")
	}
	if payload.RetrievalSignal != string(retrieval.SignalCorpusOnly) {
		t.Errorf("signal = %s, want corpus_only", payload.RetrievalSignal)
	}
	if payload.ConfidenceLabel != string(retrieval.LabelProcessConfident) {
		t.Errorf("confidence = %s, want process_confident", payload.ConfidenceLabel)
	}
	if payload.CompletionTokens == 0 {
		t.Error("usage not rolled up")
	}
}

// No jurisdiction anywhere: the payer ask comes back and the question is
// saved for resumption.
func TestRunAsksForPayerWhenJurisdictionMissing(t *testing.T) {
	h := newHarness(t, policyCorpus(), "unused")
	threadID := uuid.New()

	h.orchestrator.Execute(context.Background(), ask(threadID, "What are the prior authorization requirements for physical therapy?"))

	if len(h.sink.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(h.sink.payloads))
	}
	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusClarification {
		t.Fatalf("status = %s, want clarification", payload.Status)
	}
	if !strings.Contains(strings.ToLower(payload.Message), "payer") {
		t.Errorf("clarification does not ask for the payer: %q", payload.Message)
	}

	state, found := h.states.Load(threadID.String())
	if !found {
		t.Fatal("thread state not saved")
	}
	if len(state.OpenSlots) != 1 || state.OpenSlots[0] != slotJurisdictionPayer {
		t.Errorf("open slots = %v, want [%s]", state.OpenSlots, slotJurisdictionPayer)
	}
	if state.LastUserIntent == "" {
		t.Error("pending question not saved for resumption")
	}
}

// Clarification then a bare payer reply: the saved question resumes and
// completes under the filled jurisdiction.
func TestRunResumesSavedQuestionAfterSlotFill(t *testing.T) {
	h := newHarness(t, policyCorpus(), "Prior authorization is required after 12 visits [1].")
	threadID := uuid.New()

	h.orchestrator.Execute(context.Background(), ask(threadID, "What are the prior authorization requirements for physical therapy?"))
	h.orchestrator.Execute(context.Background(), ask(threadID, "Acme Health"))

	if len(h.sink.payloads) != 2 {
		t.Fatalf("published %d payloads, want 2", len(h.sink.payloads))
	}
	final := h.sink.payloads[1]
	if final.Status != dto.StatusCompleted {
		t.Fatalf("status = %s, want completed after slot fill", final.Status)
	}

	state, _ := h.states.Load(threadID.String())
	if len(state.OpenSlots) != 0 {
		t.Errorf("open slots = %v, want cleared", state.OpenSlots)
	}
	if !strings.Contains(state.RefinedQuery, "Acme Health") {
		t.Errorf("refined query %q does not carry the filled jurisdiction", state.RefinedQuery)
	}
	if !strings.Contains(state.RefinedQuery, "prior authorization") {
		t.Errorf("refined query %q lost the saved question", state.RefinedQuery)
	}
}

// Three or more sub-questions in one message: too broad, refine.
func TestRunAsksForRefinementWhenTooBroad(t *testing.T) {
	h := newHarness(t, policyCorpus(), "unused")
	msg := ask(uuid.New(), "For Acme Health in minnesota, what is the filing deadline and what are the appeal steps and also who handles grievances")

	h.orchestrator.Execute(context.Background(), msg)

	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusRefinementAsk {
		t.Fatalf("status = %s, want refinement_ask", payload.Status)
	}
}

// A question with no process or fact markers scores at the intent midpoint:
// the retrieval mix would be a coin flip, so the run asks the user to pick a
// reading instead of completing.
func TestRunAsksForRefinementWhenIntentAmbiguous(t *testing.T) {
	h := newHarness(t, policyCorpus(), "unused")
	msg := ask(uuid.New(), "Tell me about prior authorization timelines for Acme Health")

	h.orchestrator.Execute(context.Background(), msg)

	if len(h.sink.payloads) != 1 {
		t.Fatalf("published %d payloads, want 1", len(h.sink.payloads))
	}
	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusRefinementAsk {
		t.Fatalf("status = %s, want refinement_ask", payload.Status)
	}
	if !strings.Contains(strings.ToLower(payload.Message), "more than one way") {
		t.Errorf("ask does not explain the ambiguity: %q", payload.Message)
	}
}

func TestRefinementAskMidpointBoundaries(t *testing.T) {
	base := "tell me about prior authorization timelines"
	mk := func(kind planner.Kind, score float64) (*planner.Plan, *planner.Blueprint) {
		plan := &planner.Plan{SubQuestions: []planner.SubQuestion{{
			ID: "sq-1", Text: base, Kind: kind, IntentScore: score,
		}}}
		return plan, planner.BuildBlueprint(plan, planner.DefaultRAGK)
	}

	cases := []struct {
		name    string
		kind    planner.Kind
		score   float64
		wantAsk bool
	}{
		{"at midpoint", planner.KindNonPatient, 0.5, true},
		{"inside epsilon", planner.KindNonPatient, 0.55, true},
		{"outside epsilon", planner.KindNonPatient, 0.56, false},
		{"tool entry exempt", planner.KindTool, 0.5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, bp := mk(tc.kind, tc.score)
			got := refinementAsk(plan, bp, base, DefaultAmbiguityEpsilon)
			if tc.wantAsk && got != refinementAmbiguousAsk {
				t.Errorf("score %.2f: got %q, want the ambiguity ask", tc.score, got)
			}
			if !tc.wantAsk && got != "" {
				t.Errorf("score %.2f: got %q, want no ask", tc.score, got)
			}
		})
	}
}

// The roll-up badge uses the configured thresholds, not the defaults: a 0.92
// best score under a 0.95 confident floor stays at process_with_caution.
func TestRunBadgeFollowsConfiguredThresholds(t *testing.T) {
	tuned := retrieval.Thresholds{AbstainMax: 0.5, ConfidentMin: 0.95}
	states := dialogue.NewCacheStore()
	prog := progress.NewMemoryStore()
	sink := &fakeSink{}
	assembler := retrieval.NewAssembler(policyCorpus(), &websearch.StaticClient{}, logger.NewNopLogger(), retrieval.WithThresholds(tuned))
	router := agent.NewRouter(assembler, &fixedProvider{answer: "Claims must be filed within 90 days [1]."}, &websearch.StaticClient{}, logger.NewNopLogger())
	orch := NewOrchestrator(
		states,
		dialogue.NewExtractor([]string{"Acme Health"}),
		planner.New(planner.DefaultConfig()),
		router,
		prog,
		sink,
		logger.NewNopLogger(),
		WithConfidenceThresholds(assembler.Thresholds()),
	)

	orch.Execute(context.Background(), ask(uuid.New(), "What is the timely filing deadline for Acme Health in minnesota medicaid?"))

	payload := sink.payloads[0]
	if payload.Status != dto.StatusCompleted {
		t.Fatalf("status = %s, want completed", payload.Status)
	}
	if payload.ConfidenceLabel != string(retrieval.LabelProcessWithCaution) {
		t.Errorf("confidence = %s, want process_with_caution under the raised floor", payload.ConfidenceLabel)
	}
}

// A capability question routes to the tool agent and never needs a
// jurisdiction.
func TestRunToolQuestionSkipsJurisdictionGate(t *testing.T) {
	h := newHarness(t, &fixedSearcher{}, "unused")
	msg := ask(uuid.New(), "what can you do")

	h.orchestrator.Execute(context.Background(), msg)

	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusCompleted {
		t.Fatalf("status = %s, want completed", payload.Status)
	}
	if payload.Status == dto.StatusClarification {
		t.Error("tool question must not trigger the jurisdiction gate")
	}
}

type panicStore struct{}

func (panicStore) Load(threadID string) (*dialogue.ThreadState, bool) { panic("store corrupted") }
func (panicStore) Save(threadID string, state *dialogue.ThreadState) {}
func (panicStore) Delete(threadID string)                            {}

// A panic inside a stage still yields exactly one terminal payload, with a
// generic message and failed status.
func TestRunPanicBecomesFailedPayload(t *testing.T) {
	h := newHarness(t, policyCorpus(), "unused")
	h.orchestrator.states = panicStore{}
	msg := ask(uuid.New(), "anything at all for Acme Health in minnesota")

	h.orchestrator.Execute(context.Background(), msg)

	if len(h.sink.payloads) != 1 {
		t.Fatalf("published %d payloads, want exactly 1", len(h.sink.payloads))
	}
	payload := h.sink.payloads[0]
	if payload.Status != dto.StatusFailed {
		t.Fatalf("status = %s, want failed", payload.Status)
	}
	if strings.Contains(payload.Message, "corrupted") {
		t.Error("failure message leaks internal detail")
	}
}

func TestExecuteClearsProgress(t *testing.T) {
	h := newHarness(t, policyCorpus(), "answer [1]")
	msg := ask(uuid.New(), "What is the timely filing deadline for Acme Health in minnesota medicaid?")

	h.orchestrator.Execute(context.Background(), msg)

	if _, ok := h.progress.Get(msg.CorrelationId.String()); ok {
		t.Error("progress entry survives publish")
	}
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/agent"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/retrieval"
)

// ResponseSink receives the single terminal payload of a run. Satisfied by
// the queue implementations.
type ResponseSink interface {
	PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error
}

// TurnRecorder persists finished turns. Persistence failures are logged and
// dropped; they never surface to the user.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, threadID, correlationID uuid.UUID, userMessage string, payload *dto.ResponsePayload) error
}

const failedAnswer = "Something went wrong while answering your question. Please try again."

// RunContext carries the per-run working set through the stages.
type RunContext struct {
	CorrelationID uuid.UUID
	ThreadID      uuid.UUID
	Message       string

	State        *dialogue.ThreadState
	Turn         dialogue.TurnClass
	BaseQuestion string
	RefinedQuery string
	Plan         *planner.Plan
	Blueprint    *planner.Blueprint
	Results      []*agent.Result
}

// Orchestrator runs the stage sequence for one ask message:
// state load, classify, plan, clarify gate, resolve, integrate, publish.
// Exactly one ResponsePayload is produced per correlation id, whatever
// happens inside.
type Orchestrator struct {
	states           dialogue.StateStore
	extractor        *dialogue.Extractor
	planner          *planner.Planner
	router           *agent.Router
	progress         progress.Store
	sink             ResponseSink
	turns            TurnRecorder
	logger           logger.ILogger
	ragK             int
	ambiguityEpsilon float64
	thresholds       retrieval.Thresholds
}

type Option func(*Orchestrator)

// WithTurnRecorder attaches durable turn persistence.
func WithTurnRecorder(turns TurnRecorder) Option {
	return func(o *Orchestrator) { o.turns = turns }
}

// WithRAGK overrides the per-sub-question retrieval depth.
func WithRAGK(k int) Option {
	return func(o *Orchestrator) { o.ragK = k }
}

// WithAmbiguityEpsilon overrides how close to the intent midpoint a
// corpus-bound sub-question may score before a refinement ask goes back.
func WithAmbiguityEpsilon(epsilon float64) Option {
	return func(o *Orchestrator) { o.ambiguityEpsilon = epsilon }
}

// WithConfidenceThresholds aligns the roll-up badge with the cut points the
// retrieval assembler labels chunks with.
func WithConfidenceThresholds(t retrieval.Thresholds) Option {
	return func(o *Orchestrator) { o.thresholds = t }
}

func NewOrchestrator(
	states dialogue.StateStore,
	extractor *dialogue.Extractor,
	plnr *planner.Planner,
	router *agent.Router,
	prog progress.Store,
	sink ResponseSink,
	log logger.ILogger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		states:           states,
		extractor:        extractor,
		planner:          plnr,
		router:           router,
		progress:         prog,
		sink:             sink,
		logger:           log,
		ragK:             planner.DefaultRAGK,
		ambiguityEpsilon: DefaultAmbiguityEpsilon,
		thresholds:       retrieval.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the pipeline for one message, publishes the terminal payload
// and clears progress. This is the queue handler.
func (o *Orchestrator) Execute(ctx context.Context, msg dto.AskMessage) {
	o.progress.Begin(msg.CorrelationId.String())

	payload := o.run(ctx, msg)

	if err := o.sink.PublishResponse(ctx, payload); err != nil {
		o.logger.Error("pipeline", "failed to publish response", map[string]interface{}{
			"correlation_id": msg.CorrelationId.String(),
			"error":          err.Error(),
		})
	}
	o.progress.Clear(msg.CorrelationId.String())

	if o.turns != nil {
		if err := o.turns.RecordTurn(ctx, msg.ThreadId, msg.CorrelationId, msg.Message, payload); err != nil {
			o.logger.Warn("pipeline", "turn persistence failed", map[string]interface{}{
				"correlation_id": msg.CorrelationId.String(),
				"error":          err.Error(),
			})
		}
	}
}

// run executes the stages and always returns a terminal payload. Any panic
// inside a stage is converted at this boundary into a generic failure;
// internal detail stays in the logs.
func (o *Orchestrator) run(ctx context.Context, msg dto.AskMessage) (payload *dto.ResponsePayload) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline", "stage panicked", map[string]interface{}{
				"correlation_id": msg.CorrelationId.String(),
				"panic":          fmt.Sprint(r),
			})
			payload = o.terminal(msg, dto.StatusFailed, failedAnswer)
		}
	}()

	rc := &RunContext{
		CorrelationID: msg.CorrelationId,
		ThreadID:      msg.ThreadId,
		Message:       msg.Message,
	}

	o.stateLoad(rc)
	o.classify(rc)
	o.plan(rc)

	if early := o.clarifyGate(rc, msg); early != nil {
		return early
	}

	o.resolve(ctx, rc)
	return o.integrate(rc, msg)
}

func (o *Orchestrator) stateLoad(rc *RunContext) {
	o.thinking(rc, "loading thread state")
	state, found := o.states.Load(rc.ThreadID.String())
	if !found {
		state = dialogue.NewThreadState()
	}
	rc.State = state
}

// classify decides slot-fill vs new question, applies the extracted slot
// delta, and rebuilds the refined query. A slot-fill turn resumes the saved
// pending question; a new question replaces it.
func (o *Orchestrator) classify(rc *RunContext) {
	rc.Turn = dialogue.Classify(rc.Message, rc.State.OpenSlots, rc.State.RefinedQuery)
	o.thinking(rc, "turn classified as "+rc.Turn.String())

	delta := o.extractor.Extract(rc.Message, rc.State)
	dialogue.ApplyDelta(rc.State, delta)

	if rc.Turn == dialogue.TurnSlotFill && rc.State.LastUserIntent != "" {
		rc.BaseQuestion = rc.State.LastUserIntent
		if rc.State.HasJurisdiction() {
			cleared := []string{}
			dialogue.ApplyDelta(rc.State, dialogue.StateDelta{OpenSlots: &cleared})
		}
	} else {
		rc.BaseQuestion = rc.Message
		intent := rc.Message
		dialogue.ApplyDelta(rc.State, dialogue.StateDelta{LastUserIntent: &intent})
	}

	rc.RefinedQuery = dialogue.BuildRefinedQuery(rc.BaseQuestion, rc.State.JurisdictionSummary())
	dialogue.ApplyDelta(rc.State, dialogue.StateDelta{RefinedQuery: &rc.RefinedQuery})
}

func (o *Orchestrator) plan(rc *RunContext) {
	rc.Plan = o.planner.Decompose(rc.RefinedQuery)
	rc.Blueprint = planner.BuildBlueprint(rc.Plan, o.ragK)

	o.thinking(rc, fmt.Sprintf("planned %d sub-question(s)", len(rc.Plan.SubQuestions)))
	if rc.Plan.Fallback {
		o.thinking(rc, "planner fell back to a single sub-question")
	}
}

// resolve walks the blueprint in declared order, one sub-question at a
// time. Answers stream into the progress store as they land.
func (o *Orchestrator) resolve(ctx context.Context, rc *RunContext) {
	summary := rc.State.JurisdictionSummary()
	for i, sq := range rc.Plan.SubQuestions {
		entry := rc.Blueprint.Entries[i]
		sq.Text = dialogue.BuildRefinedQuery(sq.Text, summary)

		o.thinking(rc, fmt.Sprintf("resolving %s via %s", sq.ID, entry.Agent))
		result := o.router.Resolve(ctx, sq, entry)
		rc.Results = append(rc.Results, result)

		if result.Answer != "" {
			o.progress.AppendMessage(rc.CorrelationID.String(), result.Answer+"\n")
		}
	}
}

func (o *Orchestrator) thinking(rc *RunContext, line string) {
	o.progress.AppendThinking(rc.CorrelationID.String(), line)
}

// terminal builds a minimal payload for the failure path, where no richer
// context is available.
func (o *Orchestrator) terminal(msg dto.AskMessage, status, text string) *dto.ResponsePayload {
	return &dto.ResponsePayload{
		CorrelationId: msg.CorrelationId,
		ThreadId:      msg.ThreadId,
		Status:        status,
		Message:       text,
		Sources:       []dto.SourceDTO{},
		CompletedAt:   time.Now(),
	}
}

package agent

import (
	"context"

	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/llm"
	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/retrieval"
	"ai-policyqa-be/pkg/websearch"
)

// Result is the uniform outcome of resolving one sub-question, whatever
// strategy produced it. A Result is always returned; agent-level faults are
// absorbed into the answer text.
type Result struct {
	SubQuestionID string
	Answer        string
	Usage         llm.Usage
	Sources       []retrieval.Chunk
	Signal        retrieval.Signal
	CitedIndices  []int
}

const patientRefusal = "I can't look up patient or member records, claims, or any " +
	"account-specific information. I can answer questions about policy rules, coverage " +
	"criteria, and processes. If you have a question about a specific claim, please " +
	"contact the payer's member services line."

const composeFallback = "Sorry, an error occurred while composing the answer. " +
	"The sources found for this question are listed below."

// Router dispatches sub-questions to the strategy the blueprint selected.
type Router struct {
	assembler *retrieval.Assembler
	provider  llm.LLMProvider
	web       websearch.Client
	logger    logger.ILogger
}

func NewRouter(assembler *retrieval.Assembler, provider llm.LLMProvider, web websearch.Client, log logger.ILogger) *Router {
	return &Router{
		assembler: assembler,
		provider:  provider,
		web:       web,
		logger:    log,
	}
}

// Resolve answers one sub-question. sub.Text is expected to already carry
// the jurisdiction refinement. Never returns an error: every strategy
// degrades to a usable answer.
func (r *Router) Resolve(ctx context.Context, sub planner.SubQuestion, entry planner.BlueprintEntry) *Result {
	r.logger.Info("agent", "resolving sub-question", map[string]interface{}{
		"sub_question": sub.ID,
		"agent":        string(entry.Agent),
		"sensitivity":  string(entry.Sensitivity),
	})

	switch entry.Agent {
	case planner.AgentPatientStub:
		return &Result{
			SubQuestionID: sub.ID,
			Answer:        patientRefusal,
			Signal:        retrieval.SignalNoSources,
		}
	case planner.AgentTool:
		return r.resolveTool(ctx, sub)
	case planner.AgentReasoning:
		return r.resolveReasoning(ctx, sub)
	default:
		return r.resolveRAG(ctx, sub, entry)
	}
}

// resolveReasoning answers from the model alone, with no retrieval.
func (r *Router) resolveReasoning(ctx context.Context, sub planner.SubQuestion) *Result {
	answer, usage, err := r.provider.Generate(ctx, sub.Text, llm.WithTemperature(0.3))
	if err != nil {
		r.logger.Warn("agent", "reasoning generation failed", map[string]interface{}{
			"sub_question": sub.ID,
			"error":        err.Error(),
		})
		answer = composeFallback
	}
	return &Result{
		SubQuestionID: sub.ID,
		Answer:        answer,
		Usage:         usage,
		Signal:        retrieval.SignalNoSources,
	}
}

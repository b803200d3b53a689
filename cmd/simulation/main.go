package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/agent"
	"ai-policyqa-be/pkg/corpus"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/llm"
	"ai-policyqa-be/pkg/pipeline"
	"ai-policyqa-be/pkg/planner"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/retrieval"
	"ai-policyqa-be/pkg/websearch"
)

// In-process walkthrough of the conversational flows: clarification,
// slot-fill resume, refinement, capabilities and the patient refusal.
// Everything runs on canned collaborators, no services required.

type cannedProvider struct{}

const cannedAnswer = "Prior authorization is required for outpatient MRI studies; requests must be submitted at least 14 days before the scheduled service [0]."

func (p *cannedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, llm.Usage, error) {
	return cannedAnswer, llm.Usage{PromptTokens: 120, CompletionTokens: 35}, nil
}

func (p *cannedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, llm.Usage, error) {
	return cannedAnswer, llm.Usage{PromptTokens: 120, CompletionTokens: 35}, nil
}

func (p *cannedProvider) StreamGenerate(ctx context.Context, prompt string, options ...llm.Option) (<-chan string, error) {
	out := make(chan string, 1)
	out <- cannedAnswer
	close(out)
	return out, nil
}

// printSink renders the terminal payload, snapshotting the thinking log
// before the orchestrator clears it.
type printSink struct {
	progress progress.Store
}

func (s *printSink) PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error {
	dim := color.New(color.Faint)
	if entry, ok := s.progress.Get(payload.CorrelationId.String()); ok {
		for _, line := range entry.Thinking {
			dim.Printf("  thinking: %s\n", line)
		}
	}

	statusColor := color.New(color.FgGreen, color.Bold)
	if payload.Status != dto.StatusCompleted {
		statusColor = color.New(color.FgYellow, color.Bold)
	}
	statusColor.Printf("  [%s]", payload.Status)
	fmt.Printf(" %s\n", payload.Message)

	if len(payload.Sources) > 0 {
		cyan := color.New(color.FgCyan)
		for i, src := range payload.Sources {
			cyan.Printf("  source [%d] %s p.%d (%s, score %.2f)\n",
				i, src.DocumentName, src.PageNumber, src.SourceType, src.Score)
		}
		fmt.Printf("  signal=%s confidence=%s cited=%v tokens=%d/%d\n",
			payload.RetrievalSignal, payload.ConfidenceLabel,
			payload.CitedSourceIndices, payload.PromptTokens, payload.CompletionTokens)
	}
	return nil
}

func policyCorpus() []corpus.Candidate {
	return []corpus.Candidate{
		{
			ID:           "chunk-pa-001",
			Text:         "Prior authorization is required for outpatient MRI and CT imaging. Requests must be received no later than 14 days before the scheduled service date.",
			DocumentID:   "doc-um-manual",
			DocumentName: "Acme Health Utilization Management Manual",
			PageNumber:   12,
			SourceType:   "policy",
			Score:        0.91,
		},
		{
			ID:           "chunk-pa-002",
			Text:         "Expedited prior authorization review is available when the standard timeframe could seriously jeopardize the member's health.",
			DocumentID:   "doc-um-manual",
			DocumentName: "Acme Health Utilization Management Manual",
			PageNumber:   13,
			SourceType:   "section",
			Score:        0.74,
		},
	}
}

func main() {
	color.New(color.Bold).Println("=== Policy QA Pipeline Simulation ===")

	log := logger.NewNopLogger()
	prog := progress.NewMemoryStore()
	sink := &printSink{progress: prog}

	assembler := retrieval.NewAssembler(
		corpus.NewStaticSearcher(policyCorpus()),
		&websearch.StaticClient{Snippets: []websearch.Snippet{
			{Title: "State Medicaid bulletin", URL: "https://example.org/bulletin", Text: "Recent bulletin on imaging authorization timelines."},
		}},
		log,
	)
	router := agent.NewRouter(assembler, &cannedProvider{}, &websearch.StaticClient{}, log)

	orchestrator := pipeline.NewOrchestrator(
		dialogue.NewCacheStore(),
		dialogue.NewExtractor([]string{"Acme Health", "Beta Care"}),
		planner.New(planner.DefaultConfig()),
		router,
		prog,
		sink,
		log,
	)

	threadId := uuid.New()
	turns := []struct {
		label   string
		message string
	}{
		{"no jurisdiction yet, expect a clarification ask", "What are the prior authorization requirements for an MRI?"},
		{"slot fill, expect the saved question to resolve", "Acme Health"},
		{"too broad, expect a refinement ask", "What are the rules for timely filing and also appeals deadlines and also eligibility verification?"},
		{"capability question, no retrieval", "What can you do?"},
		{"patient-specific, expect the refusal", "What is the status of my claim?"},
	}

	user := color.New(color.FgHiWhite, color.Bold)
	for i, turn := range turns {
		fmt.Println()
		color.New(color.Faint).Printf("-- turn %d: %s\n", i+1, turn.label)
		user.Printf("USER: %s\n", turn.message)

		started := time.Now()
		orchestrator.Execute(context.Background(), dto.AskMessage{
			CorrelationId: uuid.New(),
			ThreadId:      threadId,
			Message:       turn.message,
			EnqueuedAt:    started,
		})
		color.New(color.Faint).Printf("  (%s)\n", time.Since(started).Round(time.Millisecond))
	}
}

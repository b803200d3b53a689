package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/pkg/retrieval"
)

// --- Request surface ---

type AskRequest struct {
	ThreadId uuid.UUID `json:"thread_id"` // zero value starts a new thread
	Message  string    `json:"message" validate:"required,max=4000"`
}

type AskResponse struct {
	CorrelationId uuid.UUID `json:"correlation_id"`
	ThreadId      uuid.UUID `json:"thread_id"`
}

// AskMessage is the queue payload carried from the API process to a worker.
type AskMessage struct {
	CorrelationId uuid.UUID `json:"correlation_id"`
	ThreadId      uuid.UUID `json:"thread_id"`
	Message       string    `json:"message"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// --- Terminal statuses ---

// Exactly one of these is published per correlation id.
const (
	StatusClarification = "clarification"  // jurisdiction slots missing, question saved
	StatusRefinementAsk = "refinement_ask" // question too vague or too broad
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
)

// --- Response payload ---

type SourceDTO struct {
	Id              string  `json:"id"`
	Text            string  `json:"text"`
	DocumentName    string  `json:"document_name,omitempty"`
	PageNumber      int     `json:"page_number,omitempty"`
	SourceType      string  `json:"source_type"`
	Score           float64 `json:"score"`
	ConfidenceLabel string  `json:"confidence_label,omitempty"`
	IsNeighbor      bool    `json:"is_neighbor,omitempty"`
}

// ResponsePayload is the single terminal answer for one ask.
type ResponsePayload struct {
	CorrelationId      uuid.UUID   `json:"correlation_id"`
	ThreadId           uuid.UUID   `json:"thread_id"`
	Status             string      `json:"status"`
	Message            string      `json:"message"`
	Sources            []SourceDTO `json:"sources"`
	CitedSourceIndices []int       `json:"cited_source_indices,omitempty"`
	RetrievalSignal    string      `json:"retrieval_signal,omitempty"`
	ConfidenceLabel    string      `json:"confidence_label,omitempty"`
	PromptTokens       int         `json:"prompt_tokens"`
	CompletionTokens   int         `json:"completion_tokens"`
	Cost               float64     `json:"cost"`
	CompletedAt        time.Time   `json:"completed_at"`
}

// SourcesFromChunks maps retrieval chunks onto the wire shape.
func SourcesFromChunks(chunks []retrieval.Chunk) []SourceDTO {
	sources := make([]SourceDTO, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, SourceDTO{
			Id:              c.ID,
			Text:            c.Text,
			DocumentName:    c.DocumentName,
			PageNumber:      c.PageNumber,
			SourceType:      c.SourceType,
			Score:           c.Score,
			ConfidenceLabel: string(c.ConfidenceLabel),
			IsNeighbor:      c.IsNeighbor,
		})
	}
	return sources
}

// --- Poll / stream surface ---

// Non-terminal poll statuses. A done poll carries the terminal payload's
// status instead.
const (
	PollStatusPending    = "pending"    // enqueued, no worker has picked it up
	PollStatusProcessing = "processing" // worker running, progress available
)

type PollResponse struct {
	CorrelationId uuid.UUID        `json:"correlation_id"`
	Status        string           `json:"status"`
	Done          bool             `json:"done"`
	Thinking      []string         `json:"thinking,omitempty"`
	Message       string           `json:"message,omitempty"` // partial answer so far
	Result        *ResponsePayload `json:"result,omitempty"`
}

// Stream frame types pushed over the websocket.
const (
	FrameThinking     = "thinking"
	FrameMessageChunk = "message_chunk"
	FrameCompleted    = "completed"
	FrameError        = "error"
)

type StreamFrame struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Result *ResponsePayload `json:"result,omitempty"`
	SentAt time.Time        `json:"sent_at"`
}

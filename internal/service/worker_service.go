package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/entity"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/internal/repository/contract"
	"ai-policyqa-be/pkg/pipeline"
	"ai-policyqa-be/pkg/queue"
)

type IWorkerService interface {
	// Start attaches the orchestrator to the request queue. Consumption is
	// sequential; Start itself returns immediately.
	Start(ctx context.Context) error
}

type workerService struct {
	queue        queue.Queue
	orchestrator *pipeline.Orchestrator
	logger       logger.ILogger
}

func NewWorkerService(q queue.Queue, orch *pipeline.Orchestrator, log logger.ILogger) IWorkerService {
	return &workerService{queue: q, orchestrator: orch, logger: log}
}

func (s *workerService) Start(ctx context.Context) error {
	s.logger.Info("worker", "starting request consumer", nil)
	return s.queue.ConsumeRequests(ctx, func(ctx context.Context, msg dto.AskMessage) {
		started := time.Now()
		s.orchestrator.Execute(ctx, msg)
		s.logger.Info("worker", "ask processed", map[string]interface{}{
			"correlation_id": msg.CorrelationId.String(),
			"elapsed_ms":     time.Since(started).Milliseconds(),
		})
	})
}

// TurnRecorder adapts the repositories onto the orchestrator's persistence
// port. Write failures are returned for logging but never block a response.
type TurnRecorder struct {
	turns contract.ChatTurnRepository
}

var _ pipeline.TurnRecorder = &TurnRecorder{}

func NewTurnRecorder(turns contract.ChatTurnRepository) *TurnRecorder {
	return &TurnRecorder{turns: turns}
}

func (r *TurnRecorder) RecordTurn(ctx context.Context, threadID, correlationID uuid.UUID, userMessage string, payload *dto.ResponsePayload) error {
	sources, err := json.Marshal(payload.Sources)
	if err != nil {
		sources = []byte("[]")
	}
	return r.turns.Create(ctx, &entity.ChatTurn{
		Id:               uuid.New(),
		ThreadId:         threadID,
		CorrelationId:    correlationID,
		UserMessage:      userMessage,
		Status:           payload.Status,
		Answer:           payload.Message,
		SourcesJSON:      string(sources),
		PromptTokens:     payload.PromptTokens,
		CompletionTokens: payload.CompletionTokens,
		Cost:             payload.Cost,
		CreatedAt:        time.Now(),
	})
}

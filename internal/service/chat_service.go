package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/queue"
)

type IChatService interface {
	// Ask accepts a question, mints the ids and enqueues it for the worker.
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)

	// Poll reports pending/processing progress or the terminal payload.
	Poll(ctx context.Context, correlationId uuid.UUID) *dto.PollResponse

	// Progress exposes the live entry for the stream surface.
	Progress(correlationId uuid.UUID) (*progress.Entry, bool)

	// Result returns the terminal payload once published.
	Result(ctx context.Context, correlationId uuid.UUID) (*dto.ResponsePayload, bool)
}

type chatService struct {
	queue    queue.Queue
	progress progress.Store
	logger   logger.ILogger
}

func NewChatService(q queue.Queue, prog progress.Store, log logger.ILogger) IChatService {
	return &chatService{queue: q, progress: prog, logger: log}
}

func (s *chatService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	threadId := req.ThreadId
	if threadId == uuid.Nil {
		threadId = uuid.New()
	}
	correlationId := uuid.New()

	msg := dto.AskMessage{
		CorrelationId: correlationId,
		ThreadId:      threadId,
		Message:       req.Message,
		EnqueuedAt:    time.Now(),
	}
	if err := s.queue.PublishRequest(ctx, msg); err != nil {
		s.logger.Error("chat", "failed to enqueue ask", map[string]interface{}{
			"correlation_id": correlationId.String(),
			"error":          err.Error(),
		})
		return nil, err
	}

	s.logger.Info("chat", "ask accepted", map[string]interface{}{
		"correlation_id": correlationId.String(),
		"thread_id":      threadId.String(),
	})
	return &dto.AskResponse{CorrelationId: correlationId, ThreadId: threadId}, nil
}

func (s *chatService) Poll(ctx context.Context, correlationId uuid.UUID) *dto.PollResponse {
	resp := &dto.PollResponse{CorrelationId: correlationId, Status: dto.PollStatusPending}

	if payload, ok := s.queue.GetResponse(ctx, correlationId.String()); ok {
		resp.Status = payload.Status
		resp.Done = true
		resp.Result = payload
		return resp
	}

	if entry, ok := s.progress.Get(correlationId.String()); ok {
		resp.Status = dto.PollStatusProcessing
		resp.Thinking = entry.Thinking
		resp.Message = entry.Message
	}
	return resp
}

func (s *chatService) Progress(correlationId uuid.UUID) (*progress.Entry, bool) {
	return s.progress.Get(correlationId.String())
}

func (s *chatService) Result(ctx context.Context, correlationId uuid.UUID) (*dto.ResponsePayload, bool) {
	return s.queue.GetResponse(ctx, correlationId.String())
}

package queue

import (
	"context"

	"ai-policyqa-be/internal/dto"
)

// Handler processes one ask message. It must not be invoked concurrently:
// both backends deliver requests single-flight, and a handler outcome is
// final (failed runs are not redelivered).
type Handler func(ctx context.Context, msg dto.AskMessage)

// Queue decouples request acceptance from pipeline execution. The response
// side is keyed by correlation id and written exactly once.
type Queue interface {
	PublishRequest(ctx context.Context, msg dto.AskMessage) error
	ConsumeRequests(ctx context.Context, handler Handler) error
	PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error
	GetResponse(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool)
	Close() error
}

const requestTopic = "chat.ask"

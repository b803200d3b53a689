package contract

import (
	"context"

	"ai-policyqa-be/internal/entity"

	"github.com/google/uuid"
)

type ChatTurnRepository interface {
	Create(ctx context.Context, turn *entity.ChatTurn) error
	FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*entity.ChatTurn, error)
	FindByCorrelationId(ctx context.Context, correlationId uuid.UUID) (*entity.ChatTurn, error)
}

type ThreadSnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *entity.ThreadSnapshot) error
	FindByThreadId(ctx context.Context, threadId uuid.UUID) (*entity.ThreadSnapshot, error)
}

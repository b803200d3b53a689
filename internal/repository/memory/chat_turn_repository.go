package memory

import (
	"context"
	"sync"

	"ai-policyqa-be/internal/entity"
	"ai-policyqa-be/internal/repository/contract"

	"github.com/google/uuid"
)

// ChatTurnRepository is the in-memory variant used by tests and the
// simulation binary.
type ChatTurnRepository struct {
	mu    sync.RWMutex
	turns []*entity.ChatTurn
}

var _ contract.ChatTurnRepository = &ChatTurnRepository{}

func NewChatTurnRepository() *ChatTurnRepository {
	return &ChatTurnRepository{}
}

func (r *ChatTurnRepository) Create(ctx context.Context, turn *entity.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *turn
	r.turns = append(r.turns, &copied)
	return nil
}

func (r *ChatTurnRepository) FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*entity.ChatTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.ChatTurn
	for _, turn := range r.turns {
		if turn.ThreadId == threadId {
			copied := *turn
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *ChatTurnRepository) FindByCorrelationId(ctx context.Context, correlationId uuid.UUID) (*entity.ChatTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, turn := range r.turns {
		if turn.CorrelationId == correlationId {
			copied := *turn
			return &copied, nil
		}
	}
	return nil, nil
}

// ThreadSnapshotRepository is the in-memory snapshot store.
type ThreadSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]*entity.ThreadSnapshot
}

var _ contract.ThreadSnapshotRepository = &ThreadSnapshotRepository{}

func NewThreadSnapshotRepository() *ThreadSnapshotRepository {
	return &ThreadSnapshotRepository{snapshots: make(map[uuid.UUID]*entity.ThreadSnapshot)}
}

func (r *ThreadSnapshotRepository) Upsert(ctx context.Context, snapshot *entity.ThreadSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *snapshot
	r.snapshots[snapshot.ThreadId] = &copied
	return nil
}

func (r *ThreadSnapshotRepository) FindByThreadId(ctx context.Context, threadId uuid.UUID) (*entity.ThreadSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.snapshots[threadId]
	if !ok {
		return nil, nil
	}
	copied := *snapshot
	return &copied, nil
}

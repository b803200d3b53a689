package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/entity"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/internal/repository/contract"
	"ai-policyqa-be/pkg/dialogue"
)

// SnapshotStateStore layers durable thread snapshots under the hot cache.
// Reads fall through to the repository on a cache miss; writes go to both.
// Repository failures are logged and dropped so a database hiccup never
// blocks a turn.
type SnapshotStateStore struct {
	inner     dialogue.StateStore
	snapshots contract.ThreadSnapshotRepository
	logger    logger.ILogger
}

var _ dialogue.StateStore = &SnapshotStateStore{}

func NewSnapshotStateStore(inner dialogue.StateStore, snapshots contract.ThreadSnapshotRepository, log logger.ILogger) *SnapshotStateStore {
	return &SnapshotStateStore{inner: inner, snapshots: snapshots, logger: log}
}

func (s *SnapshotStateStore) Load(threadID string) (*dialogue.ThreadState, bool) {
	if state, ok := s.inner.Load(threadID); ok {
		return state, true
	}

	id, err := uuid.Parse(threadID)
	if err != nil {
		return nil, false
	}
	snapshot, err := s.snapshots.FindByThreadId(context.Background(), id)
	if err != nil || snapshot == nil {
		return nil, false
	}

	var state dialogue.ThreadState
	if err := json.Unmarshal([]byte(snapshot.StateJSON), &state); err != nil {
		s.logger.Warn("dialogue", "discarding unreadable thread snapshot", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
		return nil, false
	}
	s.inner.Save(threadID, &state)
	return &state, true
}

func (s *SnapshotStateStore) Save(threadID string, state *dialogue.ThreadState) {
	s.inner.Save(threadID, state)

	id, err := uuid.Parse(threadID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := s.snapshots.Upsert(context.Background(), &entity.ThreadSnapshot{
		ThreadId:  id,
		StateJSON: string(raw),
		UpdatedAt: time.Now(),
	}); err != nil {
		s.logger.Warn("dialogue", "thread snapshot write failed", map[string]interface{}{
			"thread_id": threadID,
			"error":     err.Error(),
		})
	}
}

func (s *SnapshotStateStore) Delete(threadID string) {
	s.inner.Delete(threadID)
}

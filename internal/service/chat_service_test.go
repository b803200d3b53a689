package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/internal/repository/memory"
	"ai-policyqa-be/pkg/dialogue"
	"ai-policyqa-be/pkg/progress"
	"ai-policyqa-be/pkg/queue"
)

// fakeQueue records published requests and serves responses from a map.
type fakeQueue struct {
	published []dto.AskMessage
	responses map[string]*dto.ResponsePayload
}

var _ queue.Queue = &fakeQueue{}

func (q *fakeQueue) PublishRequest(ctx context.Context, msg dto.AskMessage) error {
	q.published = append(q.published, msg)
	return nil
}

func (q *fakeQueue) ConsumeRequests(ctx context.Context, handler queue.Handler) error {
	return nil
}

func (q *fakeQueue) PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error {
	if q.responses == nil {
		q.responses = make(map[string]*dto.ResponsePayload)
	}
	q.responses[payload.CorrelationId.String()] = payload
	return nil
}

func (q *fakeQueue) GetResponse(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool) {
	payload, ok := q.responses[correlationID]
	return payload, ok
}

func (q *fakeQueue) Close() error { return nil }

func TestAskMintsIdsAndEnqueues(t *testing.T) {
	q := &fakeQueue{}
	svc := NewChatService(q, progress.NewMemoryStore(), logger.NewNopLogger())

	res, err := svc.Ask(context.Background(), &dto.AskRequest{Message: "what is the timely filing limit?"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.CorrelationId)
	assert.NotEqual(t, uuid.Nil, res.ThreadId)

	require.Len(t, q.published, 1)
	assert.Equal(t, res.CorrelationId, q.published[0].CorrelationId)
	assert.Equal(t, res.ThreadId, q.published[0].ThreadId)
	assert.Equal(t, "what is the timely filing limit?", q.published[0].Message)
}

func TestAskKeepsExistingThreadId(t *testing.T) {
	q := &fakeQueue{}
	svc := NewChatService(q, progress.NewMemoryStore(), logger.NewNopLogger())
	threadId := uuid.New()

	res, err := svc.Ask(context.Background(), &dto.AskRequest{ThreadId: threadId, Message: "follow up"})
	require.NoError(t, err)
	assert.Equal(t, threadId, res.ThreadId)
}

func TestPollReportsProgressThenResult(t *testing.T) {
	q := &fakeQueue{}
	prog := progress.NewMemoryStore()
	svc := NewChatService(q, prog, logger.NewNopLogger())
	correlationId := uuid.New()

	// Nothing known yet.
	res := svc.Poll(context.Background(), correlationId)
	assert.False(t, res.Done)
	assert.Equal(t, dto.PollStatusPending, res.Status)
	assert.Empty(t, res.Thinking)

	// In flight: thinking and partial text show up.
	prog.Begin(correlationId.String())
	prog.AppendThinking(correlationId.String(), "Loading conversation state")
	prog.AppendMessage(correlationId.String(), "Timely filing")
	res = svc.Poll(context.Background(), correlationId)
	assert.False(t, res.Done)
	assert.Equal(t, dto.PollStatusProcessing, res.Status)
	assert.Equal(t, []string{"Loading conversation state"}, res.Thinking)
	assert.Equal(t, "Timely filing", res.Message)

	// Terminal payload wins over progress and hands its status through.
	require.NoError(t, q.PublishResponse(context.Background(), &dto.ResponsePayload{
		CorrelationId: correlationId,
		Status:        dto.StatusCompleted,
		Message:       "Timely filing is 90 days.",
	}))
	res = svc.Poll(context.Background(), correlationId)
	assert.True(t, res.Done)
	assert.Equal(t, dto.StatusCompleted, res.Status)
	require.NotNil(t, res.Result)
	assert.Equal(t, dto.StatusCompleted, res.Result.Status)
}

func TestSnapshotStateStoreRehydratesAfterEviction(t *testing.T) {
	snapshots := memory.NewThreadSnapshotRepository()
	threadId := uuid.New()

	first := NewSnapshotStateStore(dialogue.NewCacheStore(), snapshots, logger.NewNopLogger())
	state := dialogue.NewThreadState()
	payer := "Acme Health"
	dialogue.ApplyDelta(state, dialogue.StateDelta{Active: &dialogue.ActiveDelta{Payer: &payer}})
	first.Save(threadId.String(), state)

	// A fresh cache simulates eviction or a restart; the snapshot row is
	// the only surviving copy.
	second := NewSnapshotStateStore(dialogue.NewCacheStore(), snapshots, logger.NewNopLogger())
	loaded, ok := second.Load(threadId.String())
	require.True(t, ok)
	assert.Equal(t, "Acme Health", loaded.Active.Payer)
	assert.True(t, loaded.HasJurisdiction())

	// And the rehydrated copy is now cached.
	cached, ok := second.Load(threadId.String())
	require.True(t, ok)
	assert.Equal(t, loaded.Active.Payer, cached.Active.Payer)
}

func TestSnapshotStateStoreIgnoresUnparseableThreadIds(t *testing.T) {
	store := NewSnapshotStateStore(dialogue.NewCacheStore(), memory.NewThreadSnapshotRepository(), logger.NewNopLogger())
	store.Save("not-a-uuid", dialogue.NewThreadState())

	// Cache still serves it; only the durable write is skipped.
	_, ok := store.Load("not-a-uuid")
	assert.True(t, ok)
}

func TestTurnRecorderPersistsPayload(t *testing.T) {
	turns := memory.NewChatTurnRepository()
	recorder := NewTurnRecorder(turns)
	threadId, correlationId := uuid.New(), uuid.New()

	err := recorder.RecordTurn(context.Background(), threadId, correlationId, "what is covered?", &dto.ResponsePayload{
		CorrelationId: correlationId,
		ThreadId:      threadId,
		Status:        dto.StatusCompleted,
		Message:       "Covered per policy section 4.",
		Sources: []dto.SourceDTO{
			{Id: "chunk-1", Text: "Section 4 coverage rules", SourceType: "policy", Score: 0.9},
		},
		PromptTokens:     100,
		CompletionTokens: 20,
		Cost:             0.002,
	})
	require.NoError(t, err)

	saved, err := turns.FindByCorrelationId(context.Background(), correlationId)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, threadId, saved.ThreadId)
	assert.Equal(t, "what is covered?", saved.UserMessage)
	assert.Equal(t, dto.StatusCompleted, saved.Status)
	assert.Contains(t, saved.SourcesJSON, "chunk-1")
	assert.Equal(t, 100, saved.PromptTokens)
}

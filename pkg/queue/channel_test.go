package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
)

func TestChannelQueueRoundTrip(t *testing.T) {
	q := NewChannelQueue(NewMemoryResponseStore(), logger.NewNopLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan dto.AskMessage, 1)
	if err := q.ConsumeRequests(ctx, func(ctx context.Context, msg dto.AskMessage) {
		received <- msg
	}); err != nil {
		t.Fatal(err)
	}

	sent := dto.AskMessage{
		CorrelationId: uuid.New(),
		ThreadId:      uuid.New(),
		Message:       "what is the filing deadline",
		EnqueuedAt:    time.Now(),
	}
	if err := q.PublishRequest(ctx, sent); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-received:
		if got.CorrelationId != sent.CorrelationId || got.Message != sent.Message {
			t.Errorf("got %+v, want %+v", got, sent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}
}

func TestChannelQueuePreservesOrder(t *testing.T) {
	q := NewChannelQueue(NewMemoryResponseStore(), logger.NewNopLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 3)
	if err := q.ConsumeRequests(ctx, func(ctx context.Context, msg dto.AskMessage) {
		received <- msg.Message
	}); err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"first", "second", "third"} {
		if err := q.PublishRequest(ctx, dto.AskMessage{CorrelationId: uuid.New(), Message: text}); err != nil {
			t.Fatal(err)
		}
	}

	for _, want := range []string{"first", "second", "third"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("message %q never delivered", want)
		}
	}
}

// Publish must return once the ask is queued for the handler, not after the
// handler finishes: the HTTP accept path sits on the publish side.
func TestChannelQueuePublishDoesNotWaitForHandler(t *testing.T) {
	q := NewChannelQueue(NewMemoryResponseStore(), logger.NewNopLogger())
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	received := make(chan string, 2)
	if err := q.ConsumeRequests(ctx, func(ctx context.Context, msg dto.AskMessage) {
		if msg.Message == "first" {
			<-release
		}
		received <- msg.Message
	}); err != nil {
		t.Fatal(err)
	}

	published := make(chan struct{})
	go func() {
		defer close(published)
		for _, text := range []string{"first", "second"} {
			if err := q.PublishRequest(ctx, dto.AskMessage{CorrelationId: uuid.New(), Message: text}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a running handler")
	}

	close(release)
	for _, want := range []string{"first", "second"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("message %q never delivered", want)
		}
	}
}

func TestResponseStoreFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryResponseStore()
	id := uuid.New()

	first := &dto.ResponsePayload{CorrelationId: id, Status: dto.StatusCompleted, Message: "original"}
	stored, err := store.Put(ctx, first)
	if err != nil || !stored {
		t.Fatalf("first Put = (%v, %v)", stored, err)
	}

	duplicate := &dto.ResponsePayload{CorrelationId: id, Status: dto.StatusFailed, Message: "clobber attempt"}
	stored, err = store.Put(ctx, duplicate)
	if err != nil {
		t.Fatal(err)
	}
	if stored {
		t.Error("duplicate Put reported as stored")
	}

	got, ok := store.Get(ctx, id.String())
	if !ok || got.Message != "original" {
		t.Errorf("Get = %+v, want the original payload", got)
	}
}

func TestResponseStoreMissingId(t *testing.T) {
	store := NewMemoryResponseStore()
	if _, ok := store.Get(context.Background(), uuid.NewString()); ok {
		t.Error("Get on unknown id reported a payload")
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
)

const (
	natsStreamName   = "POLICYQA"
	natsSubject      = "chat.ask"
	natsDurableName  = "chat-worker"
	natsEnsureWindow = 5 * time.Second
)

// NATSQueue is the broker-backed topology: the API process publishes asks to
// a JetStream work queue and a standalone worker drains it. Responses go
// through a shared (redis) response store, not the broker.
type NATSQueue struct {
	nc        *nats.Conn
	js        jetstream.JetStream
	responses ResponseStore
	logger    logger.ILogger
}

var _ Queue = &NATSQueue{}

func NewNATSQueue(url string, responses ResponseStore, log logger.ILogger) (*NATSQueue, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsEnsureWindow)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      natsStreamName,
		Subjects:  []string{natsSubject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		log.Warn("queue", "failed to ensure request stream, it may already exist", map[string]interface{}{"error": err.Error()})
	}

	return &NATSQueue{nc: nc, js: js, responses: responses, logger: log}, nil
}

func (q *NATSQueue) PublishRequest(ctx context.Context, msg dto.AskMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ask message: %w", err)
	}
	if _, err := q.js.Publish(ctx, natsSubject, payload); err != nil {
		return fmt.Errorf("publish ask message: %w", err)
	}
	return nil
}

// ConsumeRequests drains the durable consumer with a sequential iterator:
// the next message is not fetched until the handler returns, which is what
// keeps the worker single-flight. Every message is acked once handled; a
// failed pipeline run is terminal and never redelivered.
func (q *NATSQueue) ConsumeRequests(ctx context.Context, handler Handler) error {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, natsStreamName, jetstream.ConsumerConfig{
		Durable:       natsDurableName,
		FilterSubject: natsSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	iter, err := consumer.Messages()
	if err != nil {
		return fmt.Errorf("failed to open message iterator: %w", err)
	}

	go func() {
		defer iter.Stop()
		for {
			if ctx.Err() != nil {
				return
			}
			msg, err := iter.Next()
			if err != nil {
				return
			}
			var ask dto.AskMessage
			if err := json.Unmarshal(msg.Data(), &ask); err != nil {
				q.logger.Error("queue", "dropping malformed ask message", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			handler(ctx, ask)
			msg.Ack()
		}
	}()
	return nil
}

func (q *NATSQueue) PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error {
	stored, err := q.responses.Put(ctx, payload)
	if err != nil {
		return err
	}
	if !stored {
		q.logger.Warn("queue", "duplicate response publish ignored", map[string]interface{}{
			"correlation_id": payload.CorrelationId.String(),
		})
	}
	return nil
}

func (q *NATSQueue) GetResponse(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool) {
	return q.responses.Get(ctx, correlationID)
}

func (q *NATSQueue) Close() error {
	if q.nc != nil {
		q.nc.Close()
	}
	return nil
}

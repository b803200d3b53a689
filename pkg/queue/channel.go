package queue

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-policyqa-be/internal/dto"
	"ai-policyqa-be/internal/pkg/logger"
)

// ChannelQueue is the co-located topology: the API process and the worker
// goroutine share one in-process watermill pub/sub.
type ChannelQueue struct {
	pubSub    *gochannel.GoChannel
	responses ResponseStore
	logger    logger.ILogger
}

var _ Queue = &ChannelQueue{}

// pendingRequestBuffer bounds how many asks may sit between the intake
// goroutine and the handler before Publish starts blocking.
const pendingRequestBuffer = 128

func NewChannelQueue(responses ResponseStore, log logger.ILogger) *ChannelQueue {
	// BlockPublishUntilSubscriberAck makes Publish wait for the subscriber's
	// ack, which is what keeps delivery in publish order: the default config
	// races messages into the subscriber channel concurrently.
	return &ChannelQueue{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NopLogger{}),
		responses: responses,
		logger:    log,
	}
}

func (q *ChannelQueue) PublishRequest(ctx context.Context, msg dto.AskMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.pubSub.Publish(requestTopic, message.NewMessage(watermill.NewUUID(), payload))
}

// ConsumeRequests starts an intake goroutine and a handler goroutine.
// Intake acks each message only after handing it to the buffered pending
// channel, so order survives and Publish returns as soon as the ask is
// queued rather than after the handler finishes with it. Malformed messages
// are acked and dropped.
func (q *ChannelQueue) ConsumeRequests(ctx context.Context, handler Handler) error {
	messages, err := q.pubSub.Subscribe(ctx, requestTopic)
	if err != nil {
		return err
	}

	pending := make(chan dto.AskMessage, pendingRequestBuffer)

	go func() {
		defer close(pending)
		for msg := range messages {
			var ask dto.AskMessage
			if err := json.Unmarshal(msg.Payload, &ask); err != nil {
				q.logger.Error("queue", "dropping malformed ask message", map[string]interface{}{"error": err.Error()})
				msg.Ack()
				continue
			}
			pending <- ask
			msg.Ack()
		}
	}()

	go func() {
		for ask := range pending {
			handler(ctx, ask)
		}
	}()
	return nil
}

func (q *ChannelQueue) PublishResponse(ctx context.Context, payload *dto.ResponsePayload) error {
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

func (q *ChannelQueue) GetResponse(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool) {
	return q.responses.Get(ctx, correlationID)
}

func (q *ChannelQueue) Close() error {
	return q.pubSub.Close()
}

package progress

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyTTL       = 15 * time.Minute
	thinkingKeyPrefix = "progress:thinking:"
	messageKeyPrefix  = "progress:message:"
	startedKeyPrefix  = "progress:started:"
)

// redisStore shares progress between the API process and a standalone
// worker in the broker-backed topology. Redis failures are swallowed:
// progress is best-effort observability, never load-bearing.
type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Begin(correlationID string) {
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, thinkingKeyPrefix+correlationID, messageKeyPrefix+correlationID)
	pipe.Set(ctx, startedKeyPrefix+correlationID, time.Now().Format(time.RFC3339Nano), redisKeyTTL)
	_, _ = pipe.Exec(ctx)
}

func (s *redisStore) AppendThinking(correlationID, line string) {
	ctx := context.Background()
	key := thinkingKeyPrefix + correlationID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, line)
	pipe.Expire(ctx, key, redisKeyTTL)
	_, _ = pipe.Exec(ctx)
}

func (s *redisStore) AppendMessage(correlationID, text string) {
	ctx := context.Background()
	key := messageKeyPrefix + correlationID
	pipe := s.client.TxPipeline()
	pipe.Append(ctx, key, text)
	pipe.Expire(ctx, key, redisKeyTTL)
	_, _ = pipe.Exec(ctx)
}

func (s *redisStore) Get(correlationID string) (*Entry, bool) {
	ctx := context.Background()

	started, err := s.client.Get(ctx, startedKeyPrefix+correlationID).Result()
	if err != nil {
		return nil, false
	}

	entry := &Entry{}
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		entry.StartedAt = t
	}
	if lines, err := s.client.LRange(ctx, thinkingKeyPrefix+correlationID, 0, -1).Result(); err == nil {
		entry.Thinking = lines
	}
	if msg, err := s.client.Get(ctx, messageKeyPrefix+correlationID).Result(); err == nil {
		entry.Message = msg
	}
	return entry, true
}

func (s *redisStore) Clear(correlationID string) {
	ctx := context.Background()
	s.client.Del(ctx,
		thinkingKeyPrefix+correlationID,
		messageKeyPrefix+correlationID,
		startedKeyPrefix+correlationID,
	)
}

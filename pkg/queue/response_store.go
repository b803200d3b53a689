package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-policyqa-be/internal/dto"
)

// ResponseStore holds terminal payloads for pickup by the poll and stream
// surfaces. Put keeps the first write for a correlation id and reports
// whether it was stored, so a duplicate publish can never clobber the
// original answer.
type ResponseStore interface {
	Put(ctx context.Context, payload *dto.ResponsePayload) (bool, error)
	Get(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool)
}

type memoryResponseStore struct {
	mu        sync.RWMutex
	responses map[string]*dto.ResponsePayload
}

func NewMemoryResponseStore() ResponseStore {
	return &memoryResponseStore{responses: make(map[string]*dto.ResponsePayload)}
}

func (s *memoryResponseStore) Put(ctx context.Context, payload *dto.ResponsePayload) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := payload.CorrelationId.String()
	if _, exists := s.responses[key]; exists {
		return false, nil
	}
	s.responses[key] = payload
	return true, nil
}

func (s *memoryResponseStore) Get(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.responses[correlationID]
	return payload, ok
}

const (
	responseKeyPrefix = "response:"
	responseTTL       = 30 * time.Minute
)

// redisResponseStore shares responses between the worker and API processes
// in the broker-backed topology. SET NX gives the same first-write-wins
// guarantee as the in-memory store.
type redisResponseStore struct {
	client *redis.Client
}

func NewRedisResponseStore(client *redis.Client) ResponseStore {
	return &redisResponseStore{client: client}
}

func (s *redisResponseStore) Put(ctx context.Context, payload *dto.ResponsePayload) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, responseKeyPrefix+payload.CorrelationId.String(), data, responseTTL).Result()
}

func (s *redisResponseStore) Get(ctx context.Context, correlationID string) (*dto.ResponsePayload, bool) {
	data, err := s.client.Get(ctx, responseKeyPrefix+correlationID).Bytes()
	if err != nil {
		return nil, false
	}
	var payload dto.ResponsePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

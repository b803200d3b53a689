package progress

import (
	"sync"
	"time"
)

// Entry is the live progress of one in-flight request. The worker is the
// single writer; the poll and stream surfaces read concurrently.
type Entry struct {
	Thinking  []string  `json:"thinking"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
}

// Store keeps per-correlation progress between enqueue and publish. An entry
// is cleared exactly once, when the terminal response is published.
type Store interface {
	Begin(correlationID string)
	AppendThinking(correlationID, line string)
	AppendMessage(correlationID, text string)
	Get(correlationID string) (*Entry, bool)
	Clear(correlationID string)
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore returns the in-process progress store used with the
// co-located queue topology.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]*Entry)}
}

func (s *memoryStore) Begin(correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[correlationID] = &Entry{StartedAt: time.Now()}
}

func (s *memoryStore) AppendThinking(correlationID, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[correlationID]
	if !ok {
		return
	}
	entry.Thinking = append(entry.Thinking, line)
}

func (s *memoryStore) AppendMessage(correlationID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[correlationID]
	if !ok {
		return
	}
	entry.Message += text
}

func (s *memoryStore) Get(correlationID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[correlationID]
	if !ok {
		return nil, false
	}
	// Copy so readers never alias the writer's slice.
	out := &Entry{
		Thinking:  append([]string(nil), entry.Thinking...),
		Message:   entry.Message,
		StartedAt: entry.StartedAt,
	}
	return out, true
}

func (s *memoryStore) Clear(correlationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, correlationID)
}

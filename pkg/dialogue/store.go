package dialogue

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// StateStore is the hot cache for thread states. Durable persistence lives
// behind the repository port; this store only keeps recently active threads.
type StateStore interface {
	Load(threadID string) (*ThreadState, bool)
	Save(threadID string, state *ThreadState)
	Delete(threadID string)
}

type cacheStore struct {
	cache *cache.Cache
}

// NewCacheStore returns an in-memory state store with a 1 hour TTL per
// thread, purging expired entries every 10 minutes.
func NewCacheStore() StateStore {
	return &cacheStore{cache: cache.New(1*time.Hour, 10*time.Minute)}
}

func (s *cacheStore) Load(threadID string) (*ThreadState, bool) {
	if x, found := s.cache.Get(threadID); found {
		return x.(*ThreadState), true
	}
	return nil, false
}

func (s *cacheStore) Save(threadID string, state *ThreadState) {
	s.cache.Set(threadID, state, cache.DefaultExpiration)
}

func (s *cacheStore) Delete(threadID string) {
	s.cache.Delete(threadID)
}

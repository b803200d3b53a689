package progress

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	if _, ok := s.Get("c1"); ok {
		t.Fatal("entry exists before Begin")
	}

	s.Begin("c1")
	s.AppendThinking("c1", "loading thread state")
	s.AppendThinking("c1", "planning")
	s.AppendMessage("c1", "partial ")
	s.AppendMessage("c1", "answer")

	entry, ok := s.Get("c1")
	if !ok {
		t.Fatal("entry missing after Begin")
	}
	if len(entry.Thinking) != 2 {
		t.Errorf("thinking = %d lines, want 2", len(entry.Thinking))
	}
	if entry.Message != "partial answer" {
		t.Errorf("message = %q", entry.Message)
	}

	s.Clear("c1")
	if _, ok := s.Get("c1"); ok {
		t.Error("entry survives Clear")
	}
}

func TestMemoryStoreAppendWithoutBeginIsNoop(t *testing.T) {
	s := NewMemoryStore()
	s.AppendThinking("ghost", "line")
	s.AppendMessage("ghost", "text")
	if _, ok := s.Get("ghost"); ok {
		t.Error("append without Begin created an entry")
	}
}

func TestMemoryStoreReadersDoNotAliasWriter(t *testing.T) {
	s := NewMemoryStore()
	s.Begin("c1")
	s.AppendThinking("c1", "first")

	entry, _ := s.Get("c1")
	entry.Thinking[0] = "mutated"
	entry.Thinking = append(entry.Thinking, "extra")

	fresh, _ := s.Get("c1")
	if fresh.Thinking[0] != "first" || len(fresh.Thinking) != 1 {
		t.Errorf("reader mutation leaked into store: %v", fresh.Thinking)
	}
}

func TestMemoryStoreConcurrentReaders(t *testing.T) {
	s := NewMemoryStore()
	s.Begin("c1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.AppendThinking("c1", fmt.Sprintf("line %d", n))
		}(i)
		go func() {
			defer wg.Done()
			s.Get("c1")
		}()
	}
	wg.Wait()

	entry, _ := s.Get("c1")
	if len(entry.Thinking) != 50 {
		t.Errorf("thinking = %d lines, want 50", len(entry.Thinking))
	}
}

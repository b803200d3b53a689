package retrieval

import (
	"context"
	"errors"
	"testing"

	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/corpus"
	"ai-policyqa-be/pkg/websearch"
)

// fakeSearcher returns scripted candidates and records calls.
type fakeSearcher struct {
	candidates  []corpus.Candidate
	neighbors   []corpus.Candidate
	typeFilter  bool
	searchErr   error
	neighborErr error
	lastK       int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int, sourceTypes []string, minScore float64) ([]corpus.Candidate, error) {
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []corpus.Candidate
	for _, c := range f.candidates {
		if c.Score >= minScore {
			out = append(out, c)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeSearcher) FetchNeighbors(ctx context.Context, documentID string, pageNumber int, radius int) ([]corpus.Candidate, error) {
	if f.neighborErr != nil {
		return nil, f.neighborErr
	}
	return f.neighbors, nil
}

func (f *fakeSearcher) SupportsTypeFilter() bool { return f.typeFilter }

func cand(id, sourceType string, score float64) corpus.Candidate {
	return corpus.Candidate{ID: id, Text: "text " + id, DocumentID: "doc-1", SourceType: sourceType, Score: score}
}

func TestMergeDedupePrefersHierarchical(t *testing.T) {
	hierarchical := []corpus.Candidate{cand("a", "policy", 0.9), cand("b", "section", 0.8)}
	factual := []corpus.Candidate{cand("b", "fact", 0.95), cand("c", "fact", 0.7)}

	merged := mergeCandidates(hierarchical, factual)

	if len(merged) != 3 {
		t.Fatalf("merged = %d candidates, want 3", len(merged))
	}
	ids := map[string]int{}
	for _, c := range merged {
		ids[c.ID]++
	}
	for id, n := range ids {
		if n != 1 {
			t.Errorf("id %q appears %d times, want exactly once", id, n)
		}
	}
	// First occurrence wins: b keeps its hierarchical source type.
	if merged[1].ID != "b" || merged[1].SourceType != "section" {
		t.Errorf("merged[1] = %+v, want hierarchical copy of b", merged[1])
	}
}

func TestRetrieveCorpusOnlyDropsAbstain(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter: true,
		candidates: []corpus.Candidate{
			cand("a", "policy", 0.9),
			cand("b", "chunk", 0.6),
			cand("c", "fact", 0.3), // abstain
		},
	}
	a := NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger())

	result := a.Retrieve(context.Background(), "appeal process", 0.2, 0)
	if result.Signal != SignalCorpusOnly {
		t.Errorf("signal = %s, want corpus_only", result.Signal)
	}
	for _, c := range result.Chunks {
		if c.ConfidenceLabel == LabelAbstain {
			t.Errorf("abstain chunk %q kept in corpus_only result", c.ID)
		}
	}
}

func TestRetrieveMidBandAppendsWebResults(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter: true,
		candidates: []corpus.Candidate{cand("a", "policy", 0.7)},
	}
	web := &websearch.StaticClient{Snippets: []websearch.Snippet{
		{Title: "External", URL: "https://example.com/a", Text: "external text"},
	}}
	a := NewAssembler(searcher, web, logger.NewNopLogger())

	result := a.Retrieve(context.Background(), "filing deadline", 0.8, 0)
	if result.Signal != SignalCorpusPlusGoogle {
		t.Errorf("signal = %s, want corpus_plus_google", result.Signal)
	}
	hasWeb := false
	for _, c := range result.Chunks {
		if c.SourceType == "google" {
			hasWeb = true
		}
	}
	if !hasWeb {
		t.Error("expected appended web chunk")
	}
}

func TestRetrieveLowBandGoogleOnly(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter: true,
		candidates: []corpus.Candidate{cand("a", "chunk", 0.3)},
	}
	web := &websearch.StaticClient{Snippets: []websearch.Snippet{
		{Title: "External", URL: "https://example.com/a", Text: "external text"},
	}}
	a := NewAssembler(searcher, web, logger.NewNopLogger())

	result := a.Retrieve(context.Background(), "obscure question", 0.9, 0)
	if result.Signal != SignalGoogleOnly {
		t.Errorf("signal = %s, want google_only", result.Signal)
	}
	for _, c := range result.Chunks {
		if c.SourceType != "google" {
			t.Errorf("corpus chunk %q kept in google_only result", c.ID)
		}
	}
}

// Best corpus score 0.3 and external search returns nothing: no sources at all.
func TestRetrieveNoSources(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter: true,
		candidates: []corpus.Candidate{cand("a", "chunk", 0.3)},
	}
	a := NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger())

	result := a.Retrieve(context.Background(), "nothing matches", 0.9, 0)
	if result.Signal != SignalNoSources {
		t.Errorf("signal = %s, want no_sources", result.Signal)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("chunks = %d, want empty", len(result.Chunks))
	}
}

func TestRetrieveSearchFailureTreatedAsEmpty(t *testing.T) {
	searcher := &fakeSearcher{typeFilter: true, searchErr: errors.New("index down")}
	a := NewAssembler(searcher, &websearch.StaticClient{Err: errors.New("search api down")}, logger.NewNopLogger())

	result := a.Retrieve(context.Background(), "anything", 0.5, 0)
	if result.Signal != SignalNoSources {
		t.Errorf("signal = %s, want no_sources", result.Signal)
	}
}

func TestHierarchicalSupersetFetchWithoutTypeFilter(t *testing.T) {
	// The fake cannot filter by type: the assembler must fetch a superset
	// and sort by (hierarchy rank, -score).
	searcher := &fakeSearcher{
		typeFilter: false,
		candidates: []corpus.Candidate{
			cand("fact-hi", "fact", 0.99),
			cand("policy-lo", "policy", 0.86),
			cand("section-mid", "section", 0.9),
		},
	}
	a := NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger())

	hierarchical := a.hierarchicalFetch(context.Background(), "q", 2)
	if searcher.lastK < 4 {
		t.Errorf("superset fetch used k=%d, want >= 2x requested", searcher.lastK)
	}
	if len(hierarchical) != 2 {
		t.Fatalf("got %d candidates, want 2", len(hierarchical))
	}
	if hierarchical[0].ID != "policy-lo" || hierarchical[1].ID != "section-mid" {
		t.Errorf("order = %s, %s; want policy-lo, section-mid", hierarchical[0].ID, hierarchical[1].ID)
	}
}

func TestNeighborExpansionDegradesOnFailure(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter:  true,
		candidates:  []corpus.Candidate{cand("a", "policy", 0.9)},
		neighborErr: errors.New("metadata store down"),
	}
	a := NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger(), WithNeighborRadius(1))

	result := a.Retrieve(context.Background(), "q", 0.1, 0)
	if len(result.Chunks) != 1 {
		t.Errorf("chunks = %d, want original chunk only", len(result.Chunks))
	}
}

func TestNeighborExpansionAppendsAndDedupes(t *testing.T) {
	searcher := &fakeSearcher{
		typeFilter: true,
		candidates: []corpus.Candidate{cand("a", "policy", 0.9)},
		neighbors: []corpus.Candidate{
			cand("a", "policy", 0.9), // already kept
			{ID: "a-prev", Text: "prev page", DocumentID: "doc-1", PageNumber: 1, SourceType: "chunk"},
		},
	}
	a := NewAssembler(searcher, &websearch.StaticClient{}, logger.NewNopLogger(), WithNeighborRadius(1))

	result := a.Retrieve(context.Background(), "q", 0.1, 0)
	if len(result.Chunks) != 2 {
		t.Fatalf("chunks = %d, want 2 (original + one neighbor)", len(result.Chunks))
	}
	if !result.Chunks[1].IsNeighbor {
		t.Error("appended neighbor not marked IsNeighbor")
	}
}

package corpus

import (
	"context"
	"sort"
	"strings"
)

// StaticSearcher serves a fixed candidate set, scored by naive term overlap.
// Used by the simulation binary and tests; it cannot filter by source type,
// which exercises the superset-fetch path in retrieval.
type StaticSearcher struct {
	candidates []Candidate
}

var _ Searcher = &StaticSearcher{}

func NewStaticSearcher(candidates []Candidate) *StaticSearcher {
	return &StaticSearcher{candidates: candidates}
}

func (s *StaticSearcher) SupportsTypeFilter() bool { return false }

func (s *StaticSearcher) Search(ctx context.Context, query string, k int, sourceTypes []string, minScore float64) ([]Candidate, error) {
	terms := strings.Fields(strings.ToLower(query))
	var out []Candidate
	for _, c := range s.candidates {
		score := c.Score
		if score == 0 {
			score = overlapScore(strings.ToLower(c.Text), terms)
		}
		if score >= minScore {
			scored := c
			scored.Score = score
			out = append(out, scored)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *StaticSearcher) FetchNeighbors(ctx context.Context, documentID string, pageNumber int, radius int) ([]Candidate, error) {
	var out []Candidate
	for _, c := range s.candidates {
		if c.DocumentID == documentID && c.PageNumber >= pageNumber-radius && c.PageNumber <= pageNumber+radius {
			out = append(out, c)
		}
	}
	return out, nil
}

func overlapScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

package retrieval

import (
	"context"
	"sort"

	"ai-policyqa-be/internal/pkg/logger"
	"ai-policyqa-be/pkg/corpus"
	"ai-policyqa-be/pkg/websearch"
)

// Result is the assembled context for one sub-question.
type Result struct {
	Chunks    []Chunk
	Signal    Signal
	BestScore float64
}

// Assembler retrieves candidate passages from the hierarchical and factual
// strategies, merges and labels them, and decides whether to fall back to
// external search. Collaborator failures never propagate: search errors are
// zero results, web errors are empty snippets.
type Assembler struct {
	searcher       corpus.Searcher
	web            websearch.Client
	logger         logger.ILogger
	params         BlendParams
	thresholds     Thresholds
	neighborRadius int
}

// Option tunes an Assembler.
type Option func(*Assembler)

func WithBlendParams(p BlendParams) Option {
	return func(a *Assembler) { a.params = p }
}

func WithThresholds(t Thresholds) Option {
	return func(a *Assembler) { a.thresholds = t }
}

// WithNeighborRadius enables sibling-passage expansion of kept corpus
// chunks. Zero disables expansion.
func WithNeighborRadius(radius int) Option {
	return func(a *Assembler) { a.neighborRadius = radius }
}

func NewAssembler(searcher corpus.Searcher, web websearch.Client, log logger.ILogger, opts ...Option) *Assembler {
	a := &Assembler{
		searcher:   searcher,
		web:        web,
		logger:     log,
		params:     DefaultBlendParams(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds exposes the cut points in use, for signal roll-ups downstream.
func (a *Assembler) Thresholds() Thresholds { return a.thresholds }

// Retrieve assembles context for one sub-question. k caps the merged corpus
// set when positive. There is no error return: collaborator failures degrade
// to an emptier result, never a failed one.
func (a *Assembler) Retrieve(ctx context.Context, question string, intentScore float64, k int) *Result {
	spec := a.params.Blend(intentScore)

	hierarchical := a.hierarchicalFetch(ctx, question, spec.NHierarchical)
	factual := a.factualFetch(ctx, question, spec.NFactual, spec.ConfidenceMin)

	merged := mergeCandidates(hierarchical, factual)
	if k > 0 && len(merged) > k {
		merged = merged[:k]
	}

	chunks := make([]Chunk, 0, len(merged))
	for _, cand := range merged {
		chunks = append(chunks, Chunk{
			ID:              cand.ID,
			Text:            cand.Text,
			DocumentID:      cand.DocumentID,
			DocumentName:    cand.DocumentName,
			PageNumber:      cand.PageNumber,
			SourceType:      cand.SourceType,
			Score:           cand.Score,
			ConfidenceLabel: AssignConfidence(cand.Score, a.thresholds),
		})
	}

	result := a.applyFallback(ctx, chunks, question)

	if a.neighborRadius > 0 && (result.Signal == SignalCorpusOnly || result.Signal == SignalCorpusPlusGoogle) {
		result.Chunks = a.expandNeighbors(ctx, result.Chunks)
	}

	a.logger.Debug("retrieval", "context assembled", map[string]interface{}{
		"question": question,
		"chunks":   len(result.Chunks),
		"signal":   string(result.Signal),
		"best":     result.BestScore,
	})

	return result
}

// hierarchicalFetch requests results restricted to the source-type
// hierarchy. When the index cannot filter by type, it fetches a superset
// (2x requested) and sorts locally by (hierarchy rank, -score), truncating
// to the requested count.
func (a *Assembler) hierarchicalFetch(ctx context.Context, question string, n int) []corpus.Candidate {
	if n <= 0 {
		return nil
	}

	if a.searcher.SupportsTypeFilter() {
		candidates, err := a.searcher.Search(ctx, question, n, HierarchicalSourceTypes(), 0)
		if err != nil {
			a.logger.Warn("retrieval", "hierarchical search failed, treating as empty", map[string]interface{}{"error": err.Error()})
			return nil
		}
		return candidates
	}

	candidates, err := a.searcher.Search(ctx, question, 2*n, nil, 0)
	if err != nil {
		a.logger.Warn("retrieval", "hierarchical superset search failed, treating as empty", map[string]interface{}{"error": err.Error()})
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := HierarchyRank(candidates[i].SourceType), HierarchyRank(candidates[j].SourceType)
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// factualFetch is plain top-k by similarity with a confidence floor.
func (a *Assembler) factualFetch(ctx context.Context, question string, n int, confidenceMin float64) []corpus.Candidate {
	if n <= 0 {
		return nil
	}
	candidates, err := a.searcher.Search(ctx, question, n, nil, confidenceMin)
	if err != nil {
		a.logger.Warn("retrieval", "factual search failed, treating as empty", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return candidates
}

// mergeCandidates concatenates hierarchical then factual results and
// dedupes by id; first occurrence wins, so the hierarchical copy is
// preferred on a tie.
func mergeCandidates(hierarchical, factual []corpus.Candidate) []corpus.Candidate {
	seen := make(map[string]bool, len(hierarchical)+len(factual))
	merged := make([]corpus.Candidate, 0, len(hierarchical)+len(factual))
	for _, c := range append(append([]corpus.Candidate{}, hierarchical...), factual...) {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	return merged
}

// applyFallback decides the source mix from the best corpus score:
//
//	best >= ConfidentMin        -> corpus only, abstain chunks dropped
//	AbstainMax <= best < Conf.  -> filtered corpus plus external snippets
//	best < AbstainMax           -> external snippets only; no_sources when
//	                               the external search also comes back empty
func (a *Assembler) applyFallback(ctx context.Context, chunks []Chunk, question string) *Result {
	best := 0.0
	for _, c := range chunks {
		if c.Score > best {
			best = c.Score
		}
	}

	switch {
	case len(chunks) > 0 && best >= a.thresholds.ConfidentMin:
		return &Result{Chunks: dropAbstain(chunks), Signal: SignalCorpusOnly, BestScore: best}

	case len(chunks) > 0 && best >= a.thresholds.AbstainMax:
		kept := dropAbstain(chunks)
		snippets := a.safeWebSearch(ctx, question)
		if len(snippets) == 0 {
			return &Result{Chunks: kept, Signal: SignalCorpusOnly, BestScore: best}
		}
		return &Result{
			Chunks:    append(kept, snippetsToChunks(snippets)...),
			Signal:    SignalCorpusPlusGoogle,
			BestScore: best,
		}

	default:
		snippets := a.safeWebSearch(ctx, question)
		if len(snippets) == 0 {
			return &Result{Signal: SignalNoSources, BestScore: best}
		}
		return &Result{Chunks: snippetsToChunks(snippets), Signal: SignalGoogleOnly, BestScore: best}
	}
}

// safeWebSearch never propagates an external failure.
func (a *Assembler) safeWebSearch(ctx context.Context, question string) []websearch.Snippet {
	if a.web == nil {
		return nil
	}
	snippets, err := a.web.Search(ctx, question)
	if err != nil {
		a.logger.Warn("retrieval", "external search failed, treating as empty", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return snippets
}

// expandNeighbors fetches sibling passages for each kept corpus chunk and
// appends them, deduped by id. Degrades to no expansion on any failure.
func (a *Assembler) expandNeighbors(ctx context.Context, chunks []Chunk) []Chunk {
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		seen[c.ID] = true
	}

	out := chunks
	for _, c := range chunks {
		if c.DocumentID == "" {
			continue
		}
		neighbors, err := a.searcher.FetchNeighbors(ctx, c.DocumentID, c.PageNumber, a.neighborRadius)
		if err != nil {
			a.logger.Warn("retrieval", "neighbor expansion failed, skipping", map[string]interface{}{
				"document_id": c.DocumentID,
				"error":       err.Error(),
			})
			continue
		}
		for _, n := range neighbors {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			out = append(out, Chunk{
				ID:              n.ID,
				Text:            n.Text,
				DocumentID:      n.DocumentID,
				DocumentName:    n.DocumentName,
				PageNumber:      n.PageNumber,
				SourceType:      n.SourceType,
				Score:           n.Score,
				ConfidenceLabel: AssignConfidence(n.Score, a.thresholds),
				IsNeighbor:      true,
			})
		}
	}
	return out
}

func dropAbstain(chunks []Chunk) []Chunk {
	kept := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.ConfidenceLabel != LabelAbstain {
			kept = append(kept, c)
		}
	}
	return kept
}

func snippetsToChunks(snippets []websearch.Snippet) []Chunk {
	chunks := make([]Chunk, 0, len(snippets))
	for _, s := range snippets {
		chunks = append(chunks, Chunk{
			ID:              "web:" + s.URL,
			Text:            s.Text,
			DocumentName:    s.Title,
			SourceType:      "google",
			ConfidenceLabel: LabelProcessWithCaution,
		})
	}
	return chunks
}

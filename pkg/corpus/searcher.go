package corpus

import "context"

// Candidate is one ranked passage returned by the corpus index.
type Candidate struct {
	ID           string
	Text         string
	DocumentID   string
	DocumentName string
	PageNumber   int
	SourceType   string
	Score        float64
}

// Searcher is the lexical/vector search collaborator consumed by retrieval.
//
// SupportsTypeFilter reports whether Search honors the sourceTypes
// restriction natively; when false, callers fetch a superset and filter
// locally.
type Searcher interface {
	Search(ctx context.Context, query string, k int, sourceTypes []string, minScore float64) ([]Candidate, error)
	FetchNeighbors(ctx context.Context, documentID string, pageNumber int, radius int) ([]Candidate, error)
	SupportsTypeFilter() bool
}

// MetadataStore resolves chunk ids to full records.
type MetadataStore interface {
	FetchByIDs(ctx context.Context, ids []string) ([]Candidate, error)
}

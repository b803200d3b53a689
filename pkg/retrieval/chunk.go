package retrieval

// Chunk is a retrieved passage flowing through assembly and into sources.
// Ephemeral: produced per sub-question, consumed once.
type Chunk struct {
	ID              string          `json:"id"`
	Text            string          `json:"text"`
	DocumentID      string          `json:"document_id"`
	DocumentName    string          `json:"document_name"`
	PageNumber      int             `json:"page_number"`
	SourceType      string          `json:"source_type"`
	Score           float64         `json:"score"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`
	IsNeighbor      bool            `json:"is_neighbor"`
}

// Signal describes which source mix actually answered a sub-question.
type Signal string

const (
	SignalCorpusOnly       Signal = "corpus_only"
	SignalCorpusPlusGoogle Signal = "corpus_plus_google"
	SignalGoogleOnly       Signal = "google_only"
	SignalNoSources        Signal = "no_sources"
)

// Source type hierarchy, most authoritative first. Hierarchical retrieval
// prefers higher-ranked types when the index cannot filter natively.
var hierarchyRank = map[string]int{
	"policy":       0,
	"section":      1,
	"chunk":        2,
	"hierarchical": 3,
	"fact":         4,
}

// HierarchyRank returns the rank of a source type; unknown types sort last.
func HierarchyRank(sourceType string) int {
	if rank, ok := hierarchyRank[sourceType]; ok {
		return rank
	}
	return len(hierarchyRank)
}

// HierarchicalSourceTypes lists the types requested by hierarchical
// retrieval, in rank order.
func HierarchicalSourceTypes() []string {
	return []string{"policy", "section", "chunk", "hierarchical", "fact"}
}

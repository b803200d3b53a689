package embedding

// Provider defines the interface for generating text embeddings.
// taskType distinguishes query-time from document-time embedding for models
// that care ("RETRIEVAL_QUERY" / "RETRIEVAL_DOCUMENT").
type Provider interface {
	Generate(text string, taskType string) ([]float32, error)
}

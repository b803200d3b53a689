package corpus

import (
	"context"
	"fmt"
	"time"

	"ai-policyqa-be/pkg/embedding"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PolicyChunk is the stored corpus passage with its embedding.
type PolicyChunk struct {
	Id           string          `gorm:"type:uuid;primaryKey"`
	DocumentId   string          `gorm:"type:uuid;index"`
	DocumentName string          `gorm:"type:varchar(512)"`
	PageNumber   int             `gorm:"index"`
	SourceType   string          `gorm:"type:varchar(32);index"`
	Content      string          `gorm:"type:text"`
	Embedding    pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt    time.Time
}

func (PolicyChunk) TableName() string {
	return "policy_chunks"
}

// PgSearcher implements Searcher over a pgvector-backed policy_chunks table,
// using cosine distance for ranking.
type PgSearcher struct {
	db       *gorm.DB
	embedder embedding.Provider
}

var _ Searcher = &PgSearcher{}
var _ MetadataStore = &PgSearcher{}

func NewPgSearcher(db *gorm.DB, embedder embedding.Provider) *PgSearcher {
	return &PgSearcher{db: db, embedder: embedder}
}

// SupportsTypeFilter is true: the relational index can restrict by
// source_type directly.
func (s *PgSearcher) SupportsTypeFilter() bool { return true }

type scoredChunkRow struct {
	PolicyChunk
	Similarity float64
}

// Search embeds the query and runs a top-k cosine similarity scan, with an
// optional source type restriction and minimum similarity floor.
func (s *PgSearcher) Search(ctx context.Context, query string, k int, sourceTypes []string, minScore float64) ([]Candidate, error) {
	values, err := s.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	vector := pgvector.NewVector(values)

	// Cosine distance in pgvector is 1 - cosine_similarity.
	tx := s.db.WithContext(ctx).
		Table("policy_chunks").
		Select("*, (1 - (embedding <=> ?)) AS similarity", vector)
	if len(sourceTypes) > 0 {
		tx = tx.Where("source_type IN ?", sourceTypes)
	}
	if minScore > 0 {
		tx = tx.Where("(1 - (embedding <=> ?)) >= ?", vector, minScore)
	}

	// Ordering goes through the selected similarity alias: gorm's Order
	// silently drops clause expressions, so the raw distance operator
	// cannot be used here.
	var rows []scoredChunkRow
	if err := tx.Order("similarity DESC").Limit(k).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, rowToCandidate(row.PolicyChunk, row.Similarity))
	}
	return candidates, nil
}

// FetchNeighbors returns sibling passages from the same document within
// +-radius pages of the given page.
func (s *PgSearcher) FetchNeighbors(ctx context.Context, documentID string, pageNumber int, radius int) ([]Candidate, error) {
	if radius <= 0 {
		return nil, nil
	}
	var chunks []PolicyChunk
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND page_number BETWEEN ? AND ?",
			documentID, pageNumber-radius, pageNumber+radius).
		Order("page_number ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("neighbor fetch failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		candidates = append(candidates, rowToCandidate(chunk, 0))
	}
	return candidates, nil
}

// FetchByIDs resolves chunk ids to full records.
func (s *PgSearcher) FetchByIDs(ctx context.Context, ids []string) ([]Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chunks []PolicyChunk
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("metadata fetch failed: %w", err)
	}
	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		candidates = append(candidates, rowToCandidate(chunk, 0))
	}
	return candidates, nil
}

func rowToCandidate(chunk PolicyChunk, similarity float64) Candidate {
	return Candidate{
		ID:           chunk.Id,
		Text:         chunk.Content,
		DocumentID:   chunk.DocumentId,
		DocumentName: chunk.DocumentName,
		PageNumber:   chunk.PageNumber,
		SourceType:   chunk.SourceType,
		Score:        similarity,
	}
}

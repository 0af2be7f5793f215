package contract

import (
	"context"

	"ragchat-be/internal/entity"
)

// ScoredDocumentEmbedding wraps DocumentEmbedding with its relevance score
type ScoredDocumentEmbedding struct {
	Embedding *entity.DocumentEmbedding
	Score     float64 // 0.0 to 1.0, (cosine + 1) / 2
}

type DocumentEmbeddingRepository interface {
	// ReplaceByContentHash atomically swaps every embedding stored under contentHash for embeddings.
	ReplaceByContentHash(ctx context.Context, contentHash string, embeddings []*entity.DocumentEmbedding) error
	DeleteByContentHash(ctx context.Context, contentHash string) error
	CountByContentHash(ctx context.Context, contentHash string) (int64, error)
	// SearchSimilarWithScore returns at most limit embeddings scoring at least minScore, best first
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, minScore float64) ([]*ScoredDocumentEmbedding, error)
}

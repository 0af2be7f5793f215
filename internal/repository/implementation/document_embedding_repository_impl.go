package implementation

import (
	"context"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/mapper"
	"ragchat-be/internal/model"
	"ragchat-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentEmbeddingRepository(db *gorm.DB) contract.DocumentEmbeddingRepository {
	return &DocumentEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentEmbeddingRepositoryImpl) ReplaceByContentHash(ctx context.Context, contentHash string, embeddings []*entity.DocumentEmbedding) error {
	models := r.mapper.ToEmbeddingModels(embeddings)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_hash = ?", contentHash).Delete(&model.DocumentEmbedding{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(models, 100).Error; err != nil {
			return err
		}

		// Update IDs back to entities
		for i, m := range models {
			*embeddings[i] = *r.mapper.ToEmbeddingEntity(m)
		}
		return nil
	})
}

func (r *DocumentEmbeddingRepositoryImpl) DeleteByContentHash(ctx context.Context, contentHash string) error {
	return r.db.WithContext(ctx).Where("content_hash = ?", contentHash).Delete(&model.DocumentEmbedding{}).Error
}

func (r *DocumentEmbeddingRepositoryImpl) CountByContentHash(ctx context.Context, contentHash string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentEmbedding{}).Where("content_hash = ?", contentHash).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore ranks by pgvector cosine distance (<=>).
// distance = 1 - cosine, so the relevance score (cosine + 1) / 2 is (2 - distance) / 2.
func (r *DocumentEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, minScore float64) ([]*contract.ScoredDocumentEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.DocumentEmbedding
		Score float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("document_embeddings").
		Select("document_embeddings.*, (2 - (embedding_value <=> ?)) / 2 as score", queryVector).
		Where("(2 - (embedding_value <=> ?)) / 2 >= ?", queryVector, minScore).
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentEmbedding{
			Embedding: r.mapper.ToEmbeddingEntity(&res.DocumentEmbedding),
			Score:     res.Score,
		}
	}
	return scored, nil
}

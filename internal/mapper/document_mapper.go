package mapper

import (
	"ragchat-be/internal/entity"
	"ragchat-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEmbeddingEntity(e *model.DocumentEmbedding) *entity.DocumentEmbedding {
	if e == nil {
		return nil
	}

	return &entity.DocumentEmbedding{
		Id:             e.Id,
		ContentHash:    e.ContentHash,
		SourcePath:     e.SourcePath,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		ChunkIndex:     e.ChunkIndex,
		Metadata:       map[string]interface{}(e.Metadata),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *DocumentMapper) ToEmbeddingModel(e *entity.DocumentEmbedding) *model.DocumentEmbedding {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if e.Metadata != nil {
		metadata = datatypes.JSONMap(e.Metadata)
	}

	return &model.DocumentEmbedding{
		Id:             e.Id,
		ContentHash:    e.ContentHash,
		SourcePath:     e.SourcePath,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:     e.ChunkIndex,
		Metadata:       metadata,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *DocumentMapper) ToEmbeddingModels(embeddings []*entity.DocumentEmbedding) []*model.DocumentEmbedding {
	models := make([]*model.DocumentEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToEmbeddingModel(e)
	}
	return models
}

func (m *DocumentMapper) ToIndexedEntity(d *model.IndexedDocument) *entity.IndexedDocument {
	if d == nil {
		return nil
	}
	return &entity.IndexedDocument{
		ContentHash: d.ContentHash,
		SourcePath:  d.SourcePath,
		ChunkCount:  d.ChunkCount,
		IndexedAt:   d.IndexedAt,
	}
}

func (m *DocumentMapper) ToIndexedModel(d *entity.IndexedDocument) *model.IndexedDocument {
	if d == nil {
		return nil
	}
	return &model.IndexedDocument{
		ContentHash: d.ContentHash,
		SourcePath:  d.SourcePath,
		ChunkCount:  d.ChunkCount,
		IndexedAt:   d.IndexedAt,
	}
}

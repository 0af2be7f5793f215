package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentEmbedding struct {
	Id             uuid.UUID
	ContentHash    string
	SourcePath     string
	Document       string
	EmbeddingValue []float32
	ChunkIndex     int
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}

type IndexedDocument struct {
	ContentHash string
	SourcePath  string
	ChunkCount  int
	IndexedAt   time.Time
}

package ingest

import (
	"context"
	"fmt"
	"time"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/pkg/embedding"
	"ragchat-be/pkg/rag/loader"
	"ragchat-be/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// embedConcurrency caps in-flight embedding calls per document.
const embedConcurrency = 4

// Ingestor splits a parsed document, embeds every chunk and stores the
// embeddings under the document's content hash.
type Ingestor struct {
	embeddingProvider embedding.EmbeddingProvider
	repo              contract.DocumentEmbeddingRepository
	chunkSize         int
	chunkOverlap      int
}

func NewIngestor(embeddingProvider embedding.EmbeddingProvider, repo contract.DocumentEmbeddingRepository, chunkSize, chunkOverlap int) *Ingestor {
	return &Ingestor{
		embeddingProvider: embeddingProvider,
		repo:              repo,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
	}
}

// Ingest returns the number of stored chunks. Embeddings previously stored
// under contentHash are replaced, so a retried ingest never duplicates.
func (in *Ingestor) Ingest(ctx context.Context, contentHash, path string, doc *loader.Document) (int, error) {
	// 1. Split Text
	chunks := utils.SplitText(doc.Text, in.chunkSize, in.chunkOverlap)
	if len(chunks) == 1 && chunks[0] == "" {
		return 0, fmt.Errorf("document is empty")
	}

	// 2. Embed every chunk
	embeddings := make([]*entity.DocumentEmbedding, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := in.embeddingProvider.Generate(gctx, chunk, embedding.TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}

			metadata := make(map[string]interface{}, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata["content_hash"] = contentHash

			embeddings[i] = &entity.DocumentEmbedding{
				Id:             uuid.New(),
				ContentHash:    contentHash,
				SourcePath:     path,
				Document:       chunk,
				EmbeddingValue: res.Embedding.Values,
				ChunkIndex:     i,
				Metadata:       metadata,
				CreatedAt:      time.Now(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// 3. Replace in one transaction
	if err := in.repo.ReplaceByContentHash(ctx, contentHash, embeddings); err != nil {
		return 0, fmt.Errorf("store embeddings: %w", err)
	}
	return len(embeddings), nil
}

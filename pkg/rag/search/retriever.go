package search

import (
	"context"
	"fmt"
	"sort"

	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/pkg/embedding"
	"ragchat-be/pkg/store"
)

// Config encapsulates search parameters
type Config struct {
	MaxResults int
	MinScore   float64
}

// ContentRetriever embeds a query and looks it up in the vector store.
type ContentRetriever struct {
	embeddingProvider embedding.EmbeddingProvider
	repo              contract.DocumentEmbeddingRepository
	config            Config
	logger            logger.ILogger
}

func NewContentRetriever(
	embeddingProvider embedding.EmbeddingProvider,
	repo contract.DocumentEmbeddingRepository,
	config Config,
	log logger.ILogger,
) *ContentRetriever {
	return &ContentRetriever{
		embeddingProvider: embeddingProvider,
		repo:              repo,
		config:            config,
		logger:            log,
	}
}

// Retrieve returns at most MaxResults documents scoring at least MinScore, best first.
func (r *ContentRetriever) Retrieve(ctx context.Context, query string) ([]store.Document, error) {
	// 1. Embed the query
	embeddingRes, err := r.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	// 2. Vector search
	scored, err := r.repo.SearchSimilarWithScore(ctx, embeddingRes.Embedding.Values, r.config.MaxResults, r.config.MinScore)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	// 3. Enforce the filters regardless of what the store returned
	docs := make([]store.Document, 0, len(scored))
	for _, s := range scored {
		if s.Score < r.config.MinScore {
			continue
		}
		docs = append(docs, store.Document{
			ID:       s.Embedding.Id.String(),
			Source:   s.Embedding.SourcePath,
			Content:  s.Embedding.Document,
			Score:    s.Score,
			Metadata: s.Embedding.Metadata,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > r.config.MaxResults {
		docs = docs[:r.config.MaxResults]
	}

	r.logger.Debug("RETRIEVER", "Retrieved content", map[string]interface{}{
		"query":   query,
		"raw":     len(scored),
		"matched": len(docs),
	})
	return docs, nil
}

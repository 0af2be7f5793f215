package search

import (
	"context"
	"errors"
	"testing"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/repository/contract"
	"ragchat-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type fakeRepo struct {
	contract.DocumentEmbeddingRepository
	results []*contract.ScoredDocumentEmbedding
	limit   int
}

func (f *fakeRepo) SearchSimilarWithScore(ctx context.Context, vec []float32, limit int, minScore float64) ([]*contract.ScoredDocumentEmbedding, error) {
	f.limit = limit
	return f.results, nil
}

func scored(text string, score float64) *contract.ScoredDocumentEmbedding {
	return &contract.ScoredDocumentEmbedding{
		Embedding: &entity.DocumentEmbedding{Id: uuid.New(), Document: text, SourcePath: "doc.txt"},
		Score:     score,
	}
}

func TestRetrieveFiltersAndOrders(t *testing.T) {
	repo := &fakeRepo{results: []*contract.ScoredDocumentEmbedding{
		scored("low", 0.5), scored("mid", 0.8), scored("high", 0.95), scored("edge", 0.7),
	}}
	r := NewContentRetriever(fakeEmbedder{}, repo, Config{MaxResults: 2, MinScore: 0.7}, logger.NewNopLogger())

	docs, err := r.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "high", docs[0].Content)
	assert.Equal(t, "mid", docs[1].Content)
	assert.Equal(t, 2, repo.limit)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	r := NewContentRetriever(fakeEmbedder{err: errors.New("quota")}, &fakeRepo{}, Config{MaxResults: 5, MinScore: 0.7}, logger.NewNopLogger())
	_, err := r.Retrieve(context.Background(), "q")
	assert.Error(t, err)
}

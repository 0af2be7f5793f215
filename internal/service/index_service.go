package service

import (
	"context"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/rag/indexer"
)

type IIndexService interface {
	// IndexDocuments indexes the documents directory. Files that fail are
	// reported in the result, not as an error.
	IndexDocuments(ctx context.Context) (*dto.IndexSummaryResponse, error)
}

type DirectoryIndexer interface {
	IndexDirectory(ctx context.Context, dir string) (*indexer.Summary, error)
}

type indexService struct {
	documentsDirectory string
	indexer            DirectoryIndexer
	logger             logger.ILogger
}

func NewIndexService(documentsDirectory string, indexer DirectoryIndexer, logger logger.ILogger) IIndexService {
	return &indexService{
		documentsDirectory: documentsDirectory,
		indexer:            indexer,
		logger:             logger,
	}
}

func (s *indexService) IndexDocuments(ctx context.Context) (*dto.IndexSummaryResponse, error) {
	summary, err := s.indexer.IndexDirectory(ctx, s.documentsDirectory)
	if err != nil {
		return nil, err
	}

	res := &dto.IndexSummaryResponse{
		Directory: s.documentsDirectory,
		Indexed:   summary.Indexed,
		Skipped:   summary.Skipped,
		Ignored:   summary.Ignored,
		Failed:    summary.Failed,
		Errors:    make([]string, 0, len(summary.Errors)),
	}
	for _, e := range summary.Errors {
		res.Errors = append(res.Errors, e.Error())
	}

	s.logger.Debug("INDEXER", "Documents directory indexed", map[string]interface{}{
		"directory": s.documentsDirectory,
		"indexed":   res.Indexed,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
	})
	return res, nil
}

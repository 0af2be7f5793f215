package contract

import (
	"context"

	"ragchat-be/internal/entity"
)

type DocumentLedgerRepository interface {
	IsIndexed(ctx context.Context, contentHash string) (bool, error)
	// RecordIndexed reports false when the fingerprint was already recorded.
	RecordIndexed(ctx context.Context, record *entity.IndexedDocument) (bool, error)
	FindByHash(ctx context.Context, contentHash string) (*entity.IndexedDocument, error)
}

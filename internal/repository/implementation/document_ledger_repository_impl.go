package implementation

import (
	"context"
	"errors"

	"ragchat-be/internal/entity"
	"ragchat-be/internal/mapper"
	"ragchat-be/internal/model"
	"ragchat-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentLedgerRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentLedgerRepository(db *gorm.DB) contract.DocumentLedgerRepository {
	return &DocumentLedgerRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentLedgerRepositoryImpl) IsIndexed(ctx context.Context, contentHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.IndexedDocument{}).Where("content_hash = ?", contentHash).Count(&count).Error
	return count > 0, err
}

func (r *DocumentLedgerRepositoryImpl) RecordIndexed(ctx context.Context, record *entity.IndexedDocument) (bool, error) {
	m := r.mapper.ToIndexedModel(record)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "content_hash"}}, DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	*record = *r.mapper.ToIndexedEntity(m)
	return true, nil
}

func (r *DocumentLedgerRepositoryImpl) FindByHash(ctx context.Context, contentHash string) (*entity.IndexedDocument, error) {
	var m model.IndexedDocument
	if err := r.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToIndexedEntity(&m), nil
}

package model

import "time"

// IndexedDocument is the dedup ledger: one row per distinct content fingerprint.
type IndexedDocument struct {
	ContentHash string    `gorm:"type:char(64);primaryKey"`
	SourcePath  string    `gorm:"type:text;not null"`
	ChunkCount  int       `gorm:"not null;default:0"`
	IndexedAt   time.Time `gorm:"autoCreateTime"`
}

func (IndexedDocument) TableName() string {
	return "indexed_documents"
}

package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"ragchat-be/internal/entity"
)

// Fingerprint is the lowercase hex SHA-256 of the raw bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type Record = entity.IndexedDocument

// Ledger remembers which fingerprints already have embeddings.
// contract.DocumentLedgerRepository is the Postgres-backed one.
type Ledger interface {
	IsIndexed(ctx context.Context, hash string) (bool, error)
	// RecordIndexed reports false if the fingerprint was recorded before.
	RecordIndexed(ctx context.Context, record *Record) (bool, error)
}

// Memory is an in-process ledger for tests and single-node development.
type Memory struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) IsIndexed(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[hash]
	return ok, nil
}

func (m *Memory) RecordIndexed(ctx context.Context, record *Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.ContentHash]; ok {
		return false, nil
	}
	if record.IndexedAt.IsZero() {
		record.IndexedAt = time.Now()
	}
	m.records[record.ContentHash] = *record
	return true, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

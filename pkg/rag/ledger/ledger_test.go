package ledger

import (
	"context"
	"testing"

	"ragchat-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The Postgres repository is used as the ledger directly.
var _ Ledger = contract.DocumentLedgerRepository(nil)

func TestFingerprint(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Fingerprint(nil))
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Fingerprint([]byte("hello")))
	assert.Equal(t, Fingerprint([]byte("same bytes")), Fingerprint([]byte("same bytes")))
	assert.NotEqual(t, Fingerprint([]byte("a")), Fingerprint([]byte("b")))
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	hash := Fingerprint([]byte("doc"))

	indexed, err := l.IsIndexed(ctx, hash)
	require.NoError(t, err)
	assert.False(t, indexed)

	first, err := l.RecordIndexed(ctx, &Record{ContentHash: hash, SourcePath: "a.txt"})
	require.NoError(t, err)
	assert.True(t, first)

	second, err := l.RecordIndexed(ctx, &Record{ContentHash: hash, SourcePath: "copy.txt"})
	require.NoError(t, err)
	assert.False(t, second)

	indexed, _ = l.IsIndexed(ctx, hash)
	assert.True(t, indexed)
	assert.Equal(t, 1, l.Len())
}

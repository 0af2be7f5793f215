package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/rag/ledger"
	"ragchat-be/pkg/rag/loader"
	"ragchat-be/pkg/workerpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu    sync.Mutex
	calls map[string]int
	delay time.Duration
	fail  func(path string) bool
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{calls: map[string]int{}}
}

func (f *fakeIngester) Ingest(ctx context.Context, hash, path string, doc *loader.Document) (int, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil && f.fail(path) {
		return 0, errors.New("embedding service unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hash]++
	return 1, nil
}

func (f *fakeIngester) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type recordingNotifier struct{ count int32 }

func (r *recordingNotifier) PublishDocumentIndexed(ctx context.Context, hash, path string, chunks int) {
	atomic.AddInt32(&r.count, 1)
}

type busyLocker struct{}

func (busyLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	return nil, false, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDuplicateUploadIsIngestedOnce(t *testing.T) {
	dir := t.TempDir()
	ingester := newFakeIngester()
	notifier := &recordingNotifier{}
	idx := New(ledger.NewMemory(), ingester, logger.NewNopLogger(), WithNotifier(notifier))

	first := writeFile(t, dir, "report.txt", "quarterly numbers")
	copyPath := writeFile(t, dir, "report-copy.txt", "quarterly numbers")

	outcome, err := idx.IndexFile(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIndexed, outcome)

	outcome, err = idx.IndexFile(context.Background(), copyPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	assert.Equal(t, 1, ingester.total())
	assert.EqualValues(t, 1, atomic.LoadInt32(&notifier.count))
}

func TestConcurrentIdenticalContentIngestedOnce(t *testing.T) {
	dir := t.TempDir()
	ingester := newFakeIngester()
	ingester.delay = 20 * time.Millisecond
	idx := New(ledger.NewMemory(), ingester, logger.NewNopLogger())

	var paths []string
	for i := 0; i < 8; i++ {
		paths = append(paths, writeFile(t, dir, "copy"+string(rune('a'+i))+".txt", "identical bytes"))
	}

	var wg sync.WaitGroup
	for _, p := range paths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := idx.IndexFile(context.Background(), p)
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 1, ingester.total())
}

func TestIndexFileIgnoresDirectoriesAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	ingester := newFakeIngester()
	idx := New(ledger.NewMemory(), ingester, logger.NewNopLogger())

	hidden := writeFile(t, dir, ".DS_Store", "junk")
	outcome, err := idx.IndexFile(context.Background(), hidden)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = idx.IndexFile(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	assert.Zero(t, ingester.total())
}

func TestIndexFileMissingPath(t *testing.T) {
	idx := New(ledger.NewMemory(), newFakeIngester(), logger.NewNopLogger())
	_, err := idx.IndexFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, apperror.ErrIndexing)
}

func TestIndexDirectoryContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "bravo")
	writeFile(t, dir, "broken.txt", "charlie")
	writeFile(t, dir, ".hidden", "delta")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	ingester := newFakeIngester()
	ingester.fail = func(path string) bool { return strings.HasSuffix(path, "broken.txt") }

	pool, err := workerpool.New(2)
	require.NoError(t, err)
	defer pool.Release()

	idx := New(ledger.NewMemory(), ingester, logger.NewNopLogger(), WithPool(pool))
	summary, err := idx.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.ErrorIs(t, summary.Errors[0], apperror.ErrIndexing)
	assert.Error(t, summary.Err())

	// a second run only retries the failure
	ingester.fail = nil
	summary, err = idx.IndexDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 2, summary.Skipped)
	assert.NoError(t, summary.Err())
}

func TestIndexDirectoryMissing(t *testing.T) {
	idx := New(ledger.NewMemory(), newFakeIngester(), logger.NewNopLogger())
	_, err := idx.IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, apperror.ErrIndexing)
}

func TestBusyLockSkipsIngestion(t *testing.T) {
	dir := t.TempDir()
	ingester := newFakeIngester()
	l := ledger.NewMemory()
	idx := New(l, ingester, logger.NewNopLogger(), WithLocker(busyLocker{}))

	outcome, err := idx.IndexFile(context.Background(), writeFile(t, dir, "a.txt", "alpha"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeBusy, outcome)
	assert.Zero(t, ingester.total())
	assert.Zero(t, l.Len())
}

func TestUnsupportedContentIsIndexingError(t *testing.T) {
	dir := t.TempDir()
	png := string([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d})
	idx := New(ledger.NewMemory(), newFakeIngester(), logger.NewNopLogger())

	_, err := idx.IndexFile(context.Background(), writeFile(t, dir, "image.png", png))
	assert.ErrorIs(t, err, apperror.ErrIndexing)
}

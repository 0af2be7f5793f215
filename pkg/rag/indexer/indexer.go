package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/rag/ledger"
	"ragchat-be/pkg/rag/loader"
	"ragchat-be/pkg/workerpool"

	"golang.org/x/sync/singleflight"
)

type Outcome string

const (
	OutcomeIndexed Outcome = "indexed"
	// OutcomeSkipped means the content was indexed before.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored covers directories and hidden files.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeBusy means another instance holds the fingerprint's lock.
	OutcomeBusy Outcome = "busy"
)

type Ingester interface {
	Ingest(ctx context.Context, contentHash, path string, doc *loader.Document) (int, error)
}

type Notifier interface {
	PublishDocumentIndexed(ctx context.Context, contentHash, path string, chunks int)
}

// Summary reports an IndexDirectory run. Errors holds one IndexingError per failed file.
type Summary struct {
	Indexed int
	Skipped int
	Ignored int
	Failed  int
	Errors  []error
}

// Indexer embeds documents at most once per distinct content.
type Indexer struct {
	ledger   ledger.Ledger
	ingester Ingester
	locker   Locker
	notifier Notifier
	pool     *workerpool.Pool
	logger   logger.ILogger
	group    singleflight.Group
}

type Option func(*Indexer)

// WithLocker adds a cross-instance lock around check-then-record.
func WithLocker(locker Locker) Option {
	return func(i *Indexer) { i.locker = locker }
}

func WithNotifier(notifier Notifier) Option {
	return func(i *Indexer) { i.notifier = notifier }
}

// WithPool fans directory scans out over pool.
func WithPool(pool *workerpool.Pool) Option {
	return func(i *Indexer) { i.pool = pool }
}

func New(l ledger.Ledger, ingester Ingester, log logger.ILogger, opts ...Option) *Indexer {
	i := &Indexer{
		ledger:   l,
		ingester: ingester,
		logger:   log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// IndexFile indexes one file unless its content is already indexed.
// Directories and hidden files are ignored without error.
func (i *Indexer) IndexFile(ctx context.Context, path string) (Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Cannot read "+path, err)
	}
	if info.IsDir() || isHidden(path) {
		return OutcomeIgnored, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Cannot read "+path, err)
	}
	hash := ledger.Fingerprint(data)

	// Concurrent requests for the same bytes share one attempt
	v, err, _ := i.group.Do(hash, func() (interface{}, error) {
		return i.indexOnce(ctx, hash, path, data)
	})
	if err != nil {
		return "", err
	}
	return v.(Outcome), nil
}

func (i *Indexer) indexOnce(ctx context.Context, hash, path string, data []byte) (Outcome, error) {
	// 1. Cross-instance lock
	if i.locker != nil {
		unlock, acquired, err := i.locker.TryLock(ctx, hash)
		if err != nil {
			return "", apperror.Indexing("indexer.IndexFile", "Index lock unavailable", err)
		}
		if !acquired {
			i.logger.Info("INDEXER", "Document is being indexed elsewhere", map[string]interface{}{"path": path, "content_hash": hash})
			return OutcomeBusy, nil
		}
		defer unlock()
	}

	// 2. Check
	indexed, err := i.ledger.IsIndexed(ctx, hash)
	if err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Ledger lookup failed", err)
	}
	if indexed {
		i.logger.Debug("INDEXER", "Document already indexed", map[string]interface{}{"path": path, "content_hash": hash})
		return OutcomeSkipped, nil
	}

	// 3. Parse and ingest
	doc, err := loader.Parse(path, data)
	if err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Cannot parse "+filepath.Base(path), err)
	}
	chunks, err := i.ingester.Ingest(ctx, hash, path, doc)
	if err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Ingestion failed for "+filepath.Base(path), err)
	}

	// 4. Record
	if _, err := i.ledger.RecordIndexed(ctx, &ledger.Record{ContentHash: hash, SourcePath: path, ChunkCount: chunks}); err != nil {
		return "", apperror.Indexing("indexer.IndexFile", "Ledger update failed", err)
	}

	i.logger.Info("INDEXER", "Document indexed", map[string]interface{}{"path": path, "content_hash": hash, "chunks": chunks})
	if i.notifier != nil {
		i.notifier.PublishDocumentIndexed(ctx, hash, path, chunks)
	}
	return OutcomeIndexed, nil
}

// IndexDirectory indexes the regular, non-hidden files directly under dir.
// A failing file is logged and counted; it never aborts the run.
func (i *Indexer) IndexDirectory(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperror.Indexing("indexer.IndexDirectory", "Cannot list "+dir, err)
	}

	summary := &Summary{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	record := func(path string, outcome Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err)
			i.logger.Error("INDEXER", "Failed to index document", map[string]interface{}{"path": path, "error": err})
			return
		}
		switch outcome {
		case OutcomeIndexed:
			summary.Indexed++
		case OutcomeIgnored:
			summary.Ignored++
		default:
			summary.Skipped++
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		task := func() {
			defer wg.Done()
			outcome, err := i.IndexFile(ctx, path)
			record(path, outcome, err)
		}

		wg.Add(1)
		if i.pool == nil {
			task()
			continue
		}
		if err := i.pool.Go(task); err != nil {
			wg.Done()
			record(path, "", apperror.Indexing("indexer.IndexDirectory", "Cannot schedule "+entry.Name(), err))
		}
	}
	wg.Wait()

	i.logger.Info("INDEXER", "Directory indexed", map[string]interface{}{
		"dir":     dir,
		"indexed": summary.Indexed,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	return summary, nil
}

// Err joins the per-file failures, or returns nil.
func (s *Summary) Err() error {
	if len(s.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%d documents failed: %w", len(s.Errors), errors.Join(s.Errors...))
}

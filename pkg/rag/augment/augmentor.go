package augment

import (
	"context"
	"errors"

	"ragchat-be/internal/apperror"
	"ragchat-be/pkg/rag/prompt"
	"ragchat-be/pkg/rag/query"
	"ragchat-be/pkg/store"
	"ragchat-be/pkg/workerpool"

	"golang.org/x/sync/errgroup"
)

type Kind int

const (
	// KindAugmented means at least one piece of content qualified.
	KindAugmented Kind = iota
	// KindFallback means retrieval succeeded but nothing qualified.
	KindFallback
)

func (k Kind) String() string {
	if k == KindFallback {
		return "fallback"
	}
	return "augmented"
}

// Result is the augmented user message ready for the completion engine.
type Result struct {
	Kind     Kind
	Prompt   string
	Contents []store.Document
	Queries  []query.Query
}

type QueryTransformer interface {
	Transform(ctx context.Context, q query.Query) ([]query.Query, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, text string) ([]store.Document, error)
}

type Augmentor struct {
	transformer QueryTransformer
	retriever   Retriever
	pool        *workerpool.Pool
}

// NewAugmentor runs augmentation on pool; a nil pool runs it on the caller's goroutine.
func NewAugmentor(transformer QueryTransformer, retriever Retriever, pool *workerpool.Pool) *Augmentor {
	return &Augmentor{
		transformer: transformer,
		retriever:   retriever,
		pool:        pool,
	}
}

func (a *Augmentor) Augment(ctx context.Context, q query.Query) (*Result, error) {
	if a.pool == nil {
		return a.augment(ctx, q)
	}
	res, err := workerpool.Run(ctx, a.pool, func(ctx context.Context) (*Result, error) {
		return a.augment(ctx, q)
	})
	if err != nil && !errors.Is(err, apperror.ErrRetrieval) {
		return nil, apperror.Retrieval("augment.Augment", "Retrieval augmentation failed", err)
	}
	return res, err
}

func (a *Augmentor) augment(ctx context.Context, q query.Query) (*Result, error) {
	// 1. Transform
	queries, err := a.transformer.Transform(ctx, q)
	if err != nil {
		return nil, err
	}

	// 2. Retrieve for every query in parallel, results slotted by query index
	perQuery := make([][]store.Document, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, tq := range queries {
		g.Go(func() error {
			docs, err := a.retriever.Retrieve(gctx, tq.Text)
			if err != nil {
				return err
			}
			perQuery[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperror.Retrieval("augment.Augment", "Content retrieval failed", err)
	}

	// 3. Aggregate
	contents := Aggregate(perQuery)

	// 4. Inject
	result := &Result{
		Kind:     KindAugmented,
		Prompt:   prompt.Inject(q.Text, contents),
		Contents: contents,
		Queries:  queries,
	}
	if len(contents) == 0 {
		result.Kind = KindFallback
	}
	return result, nil
}

// Aggregate flattens per-query results in query order, keeping the first
// occurrence of each text with the best score seen for it.
func Aggregate(perQuery [][]store.Document) []store.Document {
	index := map[string]int{}
	var out []store.Document
	for _, docs := range perQuery {
		for _, d := range docs {
			if i, seen := index[d.Content]; seen {
				if d.Score > out[i].Score {
					out[i].Score = d.Score
				}
				continue
			}
			index[d.Content] = len(out)
			out = append(out, d)
		}
	}
	return out
}

package workerpool

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// Pool is a bounded goroutine pool shared by augmentation, hashing and ingestion.
type Pool struct {
	pool *ants.Pool
}

func New(size int) (*Pool, error) {
	p, err := ants.NewPool(size, ants.WithPreAlloc(false))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Go submits fn, blocking while the pool is saturated.
func (p *Pool) Go(fn func()) error {
	return p.pool.Submit(fn)
}

func (p *Pool) Running() int {
	return p.pool.Running()
}

func (p *Pool) Release() {
	p.pool.Release()
}

type result[T any] struct {
	value T
	err   error
}

// Run executes fn on the pool and waits for it. If ctx ends first Run returns
// ctx.Err() and the task's eventual result is discarded.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	done := make(chan result[T], 1)

	if err := p.Go(func() {
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	}); err != nil {
		return zero, fmt.Errorf("submit task: %w", err)
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Package pool provides a bounded worker pool for dispatching blocking work
// off the request path.
package pool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently executing tasks. The extractor
// performs blocking network and disk I/O in a subprocess, so concurrency is
// capped at the pool's capacity rather than one process per request.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool with the given capacity. Sizes below one are clamped.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the pool's capacity.
func (p *Pool) Size() int {
	return p.size
}

// Do dispatches fn to the pool and waits for it to finish. Waiting for a free
// slot honors ctx; once fn starts it runs to completion. A panic in fn is
// re-raised on the calling goroutine, where the caller's recovery handling
// applies. No ordering is promised between concurrent callers.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan struct{})
	var panicked any
	go func() {
		defer p.sem.Release(1)
		defer close(done)
		defer func() {
			panicked = recover()
		}()
		fn()
	}()

	<-done
	if panicked != nil {
		panic(panicked)
	}
	return nil
}

package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool caps concurrent calls to a shared upstream. Every stage handler fans
// out its own agent calls, so the cap has to live below them in the client.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool allows at most limit concurrent calls. A limit below 1 means 1.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run waits for a slot, runs fn and releases the slot. It returns ctx.Err()
// if ctx ends while waiting. A nil Pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

package carpal

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// BoundedResource bounds concurrent access to a resource by weight,
// adapted from the teacher's Semaphore/waiter pair. Where the teacher's
// Acquire returns a Task that a Coroutine awaits inline, BoundedResource
// returns a Future[Void] that completes once the requested weight has
// been granted, so any caller holding an Executor (not just one running
// inside a cooperative routine) can wait on it.
//
// Internally it wraps golang.org/x/sync/semaphore.Weighted rather than
// reimplementing the waiter queue the teacher hand-rolled: the package
// already provides exactly the weighted-acquire/release semantics the
// teacher's own Semaphore exposed, including FIFO fairness among blocked
// acquirers.
type BoundedResource struct {
	sem *semaphore.Weighted
}

// NewBoundedResource returns a BoundedResource with the given maximum
// combined weight.
func NewBoundedResource(n int64) *BoundedResource {
	return &BoundedResource{sem: semaphore.NewWeighted(n)}
}

// Acquire returns a Future that completes, with no value, once a weight
// of n has been acquired from the resource. ctx bounds how long the
// caller is willing to wait; a canceled or expired ctx fails the Future
// with ctx.Err().
func (b *BoundedResource) Acquire(ctx context.Context, n int64) Future[Void] {
	out := NewCell[Void]()
	go func() {
		if err := b.sem.Acquire(ctx, n); err != nil {
			out.SetException(err)
			return
		}
		out.Set(Void{})
	}()
	return futureFromCell(out)
}

// TryAcquire attempts to acquire a weight of n without blocking,
// reporting whether it succeeded.
func (b *BoundedResource) TryAcquire(n int64) bool {
	return b.sem.TryAcquire(n)
}

// Release releases a weight of n back to the resource.
func (b *BoundedResource) Release(n int64) {
	b.sem.Release(n)
}

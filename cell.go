package carpal

import (
	"sync"
	"sync/atomic"
)

// Void is the Go analogue of the source's T = unit specialization: a Cell,
// Promise or Future parameterized with Void carries no payload, only
// completion and (possibly) an error.
type Void = struct{}

type cellState int32

const (
	pending cellState = iota
	normal
	failed
)

// Cell is the shared completion record behind a [Promise]/[Future] pair.
// It holds a state (pending, normal or failed), the value or error
// produced, and a chain of zero-argument callbacks run exactly once, in
// insertion order, at the moment of completion.
//
// Grounded on the source's PromiseFuturePairBase/PromiseFuturePair<T>: the
// atomic state field lets IsPending/IsNormal/IsFailed/IsComplete answer
// without taking the mutex, while the mutex guards the continuation chain
// and backs the condition variable Wait blocks on. Unlike the source,
// which stores a single CallbackType per Cell, continuations here is a
// slice — the source's own combinator catalog requires a cell support an
// arbitrary number of independent subscribers (every combinator, plus any
// number of AddSyncCallback callers), so a true chain replaces what the
// retrieved original otherwise leaves ambiguous (see DESIGN.md).
//
// There is no manual reference counting: the Go garbage collector already
// keeps a Cell alive for as long as any Promise, Future or combinator
// holds a pointer to it. Handles drop that pointer early with Reset to
// mirror the source's "release upstream memory early" invariant.
type Cell[T any] struct {
	st atomic.Int32

	mu   sync.Mutex
	cond *sync.Cond

	value         T
	err           error
	continuations []func()
}

// NewCell returns a new, pending Cell.
func NewCell[T any]() *Cell[T] {
	c := &Cell[T]{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Cell[T]) state() cellState {
	return cellState(c.st.Load())
}

// IsPending reports whether c has not yet completed. The result may be
// stale the instant it returns true.
func (c *Cell[T]) IsPending() bool { return c.state() == pending }

// IsNormal reports whether c completed without error.
func (c *Cell[T]) IsNormal() bool { return c.state() == normal }

// IsFailed reports whether c completed with an error.
func (c *Cell[T]) IsFailed() bool { return c.state() == failed }

// IsComplete reports whether c has completed, normally or otherwise.
func (c *Cell[T]) IsComplete() bool { return c.state() != pending }

// Wait blocks the calling goroutine until c completes. It is safe to call
// from any goroutine, any number of times.
func (c *Cell[T]) Wait() {
	if c.state() != pending {
		return
	}
	c.mu.Lock()
	for c.state() == pending {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// Get waits for c to complete, then returns its value, or a zero value and
// the stored error if c failed.
func (c *Cell[T]) Get() (T, error) {
	c.Wait()
	if c.state() == failed {
		var zero T
		return zero, c.err
	}
	return c.value, nil
}

// GetException waits for c to complete and returns the stored error, or
// nil if c completed normally.
func (c *Cell[T]) GetException() error {
	c.Wait()
	return c.err
}

// AddSyncCallback registers f to run when c completes. If c has already
// completed, f runs immediately, on the calling goroutine, before
// AddSyncCallback returns. Otherwise f runs later, on whichever goroutine
// calls Set/SetException/SetFrom — not necessarily the goroutine that
// called AddSyncCallback.
func (c *Cell[T]) AddSyncCallback(f func()) {
	c.mu.Lock()
	if c.state() == pending {
		c.continuations = append(c.continuations, f)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	f()
}

// Set transitions c to the normal state with value v. Set must be called
// at most once per Cell; a second call panics, matching the source's
// "must be called exactly once" contract for what is otherwise a total
// operation.
func (c *Cell[T]) Set(v T) {
	c.transition(normal, func() { c.value = v })
}

// SetException transitions c to the failed state with err, which must be
// non-nil.
func (c *Cell[T]) SetException(err error) {
	if err == nil {
		panic("carpal: SetException called with a nil error")
	}
	c.transition(failed, func() { c.err = err })
}

// SetFrom adopts the outcome of other: if other completed normally, c
// adopts its value; if other failed, c adopts its error.
func (c *Cell[T]) SetFrom(other *Cell[T]) {
	v, err := other.Get()
	if err != nil {
		c.SetException(err)
	} else {
		c.Set(v)
	}
}

func (c *Cell[T]) transition(newState cellState, apply func()) {
	c.mu.Lock()
	if c.state() != pending {
		c.mu.Unlock()
		panic("carpal: cell transitioned more than once")
	}
	apply()
	c.st.Store(int32(newState))
	chain := c.continuations
	c.continuations = nil
	c.mu.Unlock()
	c.cond.Broadcast()
	for _, f := range chain {
		f()
	}
}

// awaitableCell adapts a Cell to the [Awaitable] contract so that a
// caller-provided routine integration can suspend on it without this
// package depending on any particular coroutine mechanism.
type awaitableCell[T any] struct {
	cell *Cell[T]
}

// Awaitable returns the [Awaitable] adapter for c, for use by a
// caller-supplied cooperative routine driver.
func (c *Cell[T]) Awaitable() Awaitable {
	return awaitableCell[T]{cell: c}
}

func (a awaitableCell[T]) AwaitReady() bool { return a.cell.IsComplete() }

func (a awaitableCell[T]) AwaitSuspend(resume func()) {
	a.cell.AddSyncCallback(resume)
}

func (a awaitableCell[T]) AwaitResume() (any, error) {
	v, err := a.cell.Get()
	return v, err
}

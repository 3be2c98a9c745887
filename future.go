package carpal

// Promise is the producer-facing handle on a [Cell]. Grounded on the
// source's Promise<T>/Promise<void>: a thin wrapper that owns a fresh Cell
// and exposes only the completion operations, never Wait/Get.
type Promise[T any] struct {
	cell *Cell[T]
}

// NewPromise returns a new Promise backed by a fresh, pending Cell.
func NewPromise[T any]() Promise[T] {
	return Promise[T]{cell: NewCell[T]()}
}

// Set completes the Promise's Cell normally with value v.
func (p Promise[T]) Set(v T) { p.cell.Set(v) }

// SetException completes the Promise's Cell with err.
func (p Promise[T]) SetException(err error) { p.cell.SetException(err) }

// Future returns the consumer-facing [Future] handle for p's Cell. It may
// be called any number of times; every call returns a handle onto the
// same Cell.
func (p Promise[T]) Future() Future[T] { return Future[T]{cell: p.cell} }

// Future is the consumer-facing handle on a [Cell]. Multiple independent
// Futures may observe the same Cell; each is a thin wrapper around a
// pointer, so copying a Future is cheap and shares the underlying Cell.
type Future[T any] struct {
	cell *Cell[T]
}

// futureFromCell wraps an already-allocated Cell as a Future; used
// internally by combinators that construct their output Cell directly.
func futureFromCell[T any](c *Cell[T]) Future[T] { return Future[T]{cell: c} }

// Wait blocks until f completes.
func (f Future[T]) Wait() { f.cell.Wait() }

// Get waits for f to complete and returns its value or error.
func (f Future[T]) Get() (T, error) { return f.cell.Get() }

// IsComplete reports whether f has completed.
func (f Future[T]) IsComplete() bool { return f.cell.IsComplete() }

// IsNormal reports whether f completed without error.
func (f Future[T]) IsNormal() bool { return f.cell.IsNormal() }

// IsFailed reports whether f completed with an error.
func (f Future[T]) IsFailed() bool { return f.cell.IsFailed() }

// GetException waits for f to complete and returns its error, or nil.
func (f Future[T]) GetException() error { return f.cell.GetException() }

// AddSyncCallback registers a callback to run when f completes, per
// [Cell.AddSyncCallback]'s contract.
func (f Future[T]) AddSyncCallback(cb func()) { f.cell.AddSyncCallback(cb) }

// Awaitable returns the [Awaitable] adapter for f's underlying Cell.
func (f Future[T]) Awaitable() Awaitable { return f.cell.Awaitable() }

// Reset drops f's reference to its underlying Cell, releasing it for
// garbage collection once no other handle refers to it. Combinators call
// Reset on their input Futures immediately after consuming them, matching
// the source's "reset input handles immediately after use" invariant.
func (f *Future[T]) Reset() { f.cell = nil }

// Valid reports whether f still refers to a Cell (false after Reset).
func (f Future[T]) Valid() bool { return f.cell != nil }

// CompletedFuture returns a Future already completed normally with v.
func CompletedFuture[T any](v T) Future[T] {
	c := NewCell[T]()
	c.Set(v)
	return futureFromCell(c)
}

// CompletedVoidFuture returns a Future[Void] already completed normally.
func CompletedVoidFuture() Future[Void] {
	return CompletedFuture(Void{})
}

// ExceptionFuture returns a Future already completed with err.
func ExceptionFuture[T any](err error) Future[T] {
	c := NewCell[T]()
	c.SetException(err)
	return futureFromCell(c)
}

// RunAsync enqueues f on exec and returns a Future that completes with
// f's result (or the panic/error it produces).
func RunAsync[T any](exec Executor, f func() (T, error)) Future[T] {
	c := NewCell[T]()
	exec.Enqueue(func() {
		completeFromCall(c, f)
	})
	return futureFromCell(c)
}

// completeFromCall runs f under panic protection and completes c from its
// result, exactly mirroring PromiseFuturePair<T>::computeAndSet.
func completeFromCall[T any](c *Cell[T], f func() (T, error)) {
	var v T
	var callErr error
	if panicErr := runProtected(func() { v, callErr = f() }); panicErr != nil {
		c.SetException(panicErr)
		return
	}
	if callErr != nil {
		c.SetException(callErr)
		return
	}
	c.Set(v)
}

package carpal

import (
	"errors"
	"sync"
)

// ReadyTask enqueues f on exec and returns a Future completing with its
// result. It is the zero-input entry of the combinator catalog; RunAsync
// is an alias kept for the free-function name the external interface
// table uses.
func ReadyTask[T any](exec Executor, f func() (T, error)) Future[T] {
	return RunAsync(exec, f)
}

// Then returns a Future that, once in completes normally, runs f(value)
// on exec and completes with its result. A failure of in propagates
// without running f.
func Then[T, R any](exec Executor, in Future[T], f func(T) (R, error)) Future[R] {
	out := NewCell[R]()
	in.AddSyncCallback(func() {
		v, err := in.Get()
		in.Reset()
		if err != nil {
			out.SetException(err)
			return
		}
		exec.Enqueue(func() {
			completeFromCall(out, func() (R, error) { return f(v) })
		})
	})
	return futureFromCell(out)
}

// ThenAsync is like [Then], but f itself returns a Future[R]; the output
// completes with the inner Future's eventual outcome rather than with
// f's return value directly.
func ThenAsync[T, R any](exec Executor, in Future[T], f func(T) (Future[R], error)) Future[R] {
	out := NewCell[R]()
	in.AddSyncCallback(func() {
		v, err := in.Get()
		in.Reset()
		if err != nil {
			out.SetException(err)
			return
		}
		exec.Enqueue(func() {
			var inner Future[R]
			var callErr error
			if panicErr := runProtected(func() { inner, callErr = f(v) }); panicErr != nil {
				out.SetException(panicErr)
				return
			}
			if callErr != nil {
				out.SetException(callErr)
				return
			}
			inner.AddSyncCallback(func() {
				out.SetFrom(inner.cell)
				inner.Reset()
			})
		})
	})
	return futureFromCell(out)
}

// CatchAll returns a Future that adopts in's value when in completes
// normally, or runs handler(exception) on exec and completes with its
// result when in fails.
func CatchAll[T any](exec Executor, in Future[T], handler func(error) (T, error)) Future[T] {
	out := NewCell[T]()
	in.AddSyncCallback(func() {
		v, err := in.Get()
		in.Reset()
		if err == nil {
			out.Set(v)
			return
		}
		exec.Enqueue(func() {
			completeFromCall(out, func() (T, error) { return handler(err) })
		})
	})
	return futureFromCell(out)
}

// CatchAllAsync is like [CatchAll], but handler itself returns a
// Future[T]; the output adopts the inner Future's eventual outcome.
func CatchAllAsync[T any](exec Executor, in Future[T], handler func(error) (Future[T], error)) Future[T] {
	out := NewCell[T]()
	in.AddSyncCallback(func() {
		v, err := in.Get()
		in.Reset()
		if err == nil {
			out.Set(v)
			return
		}
		exec.Enqueue(func() {
			var inner Future[T]
			var callErr error
			if panicErr := runProtected(func() { inner, callErr = handler(err) }); panicErr != nil {
				out.SetException(panicErr)
				return
			}
			if callErr != nil {
				out.SetException(callErr)
				return
			}
			inner.AddSyncCallback(func() {
				out.SetFrom(inner.cell)
				inner.Reset()
			})
		})
	})
	return futureFromCell(out)
}

// CatchTyped returns a Future that adopts in's value on success; on
// failure, if the stored error matches E (via errors.As), it runs
// handler(typedError) on exec as CatchAll would; otherwise the original
// error propagates untouched, so errors.Is/errors.As against it still
// succeed downstream.
func CatchTyped[E error, T any](exec Executor, in Future[T], handler func(E) (T, error)) Future[T] {
	return CatchAll(exec, in, func(err error) (T, error) {
		var target E
		if errors.As(err, &target) {
			return handler(target)
		}
		var zero T
		return zero, err
	})
}

// CatchTypedAsync is like [CatchTyped], but handler itself returns a
// Future[T]; the output adopts the inner Future's eventual outcome,
// matching the source's Future<T>::thenCatchAsync<E>.
func CatchTypedAsync[E error, T any](exec Executor, in Future[T], handler func(E) (Future[T], error)) Future[T] {
	return CatchAllAsync(exec, in, func(err error) (Future[T], error) {
		var target E
		if errors.As(err, &target) {
			return handler(target)
		}
		return Future[T]{}, err
	})
}

// joinState is the shared "last writer wins the enqueue" counter behind
// every WhenAll* combinator, grounded on the source's ContinuationTask's
// atomic m_remaining field: each input's completion decrements the
// counter; the decrement that reaches zero is the one that proceeds.
type joinState struct {
	mu        sync.Mutex
	remaining int
	firstErr  error
}

func newJoinState(n int) *joinState { return &joinState{remaining: n} }

// arrive records one more input's completion and reports whether this was
// the last one (done), along with the first-observed failure if any.
func (j *joinState) arrive(err error) (done bool, firstErr error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil && j.firstErr == nil {
		j.firstErr = err
	}
	j.remaining--
	return j.remaining == 0, j.firstErr
}

// WhenAll2 returns a Future that completes, once both fa and fb have
// completed normally, with f(a, b) run on exec. If either fails, the
// output adopts the first-observed failure and f never runs.
func WhenAll2[A, B, R any](exec Executor, fa Future[A], fb Future[B], f func(A, B) (R, error)) Future[R] {
	out := NewCell[R]()
	j := newJoinState(2)
	var va A
	var vb B
	finish := func(firstErr error) {
		if firstErr != nil {
			out.SetException(firstErr)
			return
		}
		exec.Enqueue(func() {
			completeFromCall(out, func() (R, error) { return f(va, vb) })
		})
	}
	fa.AddSyncCallback(func() {
		v, err := fa.Get()
		fa.Reset()
		va = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fb.AddSyncCallback(func() {
		v, err := fb.Get()
		fb.Reset()
		vb = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	return futureFromCell(out)
}

// WhenAll3 is [WhenAll2] for three inputs.
func WhenAll3[A, B, C, R any](exec Executor, fa Future[A], fb Future[B], fc Future[C], f func(A, B, C) (R, error)) Future[R] {
	out := NewCell[R]()
	j := newJoinState(3)
	var va A
	var vb B
	var vc C
	finish := func(firstErr error) {
		if firstErr != nil {
			out.SetException(firstErr)
			return
		}
		exec.Enqueue(func() {
			completeFromCall(out, func() (R, error) { return f(va, vb, vc) })
		})
	}
	fa.AddSyncCallback(func() {
		v, err := fa.Get()
		fa.Reset()
		va = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fb.AddSyncCallback(func() {
		v, err := fb.Get()
		fb.Reset()
		vb = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fc.AddSyncCallback(func() {
		v, err := fc.Get()
		fc.Reset()
		vc = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	return futureFromCell(out)
}

// WhenAll4 is [WhenAll2] for four inputs.
func WhenAll4[A, B, C, D, R any](exec Executor, fa Future[A], fb Future[B], fc Future[C], fd Future[D], f func(A, B, C, D) (R, error)) Future[R] {
	out := NewCell[R]()
	j := newJoinState(4)
	var va A
	var vb B
	var vc C
	var vd D
	finish := func(firstErr error) {
		if firstErr != nil {
			out.SetException(firstErr)
			return
		}
		exec.Enqueue(func() {
			completeFromCall(out, func() (R, error) { return f(va, vb, vc, vd) })
		})
	}
	fa.AddSyncCallback(func() {
		v, err := fa.Get()
		fa.Reset()
		va = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fb.AddSyncCallback(func() {
		v, err := fb.Get()
		fb.Reset()
		vb = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fc.AddSyncCallback(func() {
		v, err := fc.Get()
		fc.Reset()
		vc = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	fd.AddSyncCallback(func() {
		v, err := fd.Get()
		fd.Reset()
		vd = v
		if done, firstErr := j.arrive(err); done {
			finish(firstErr)
		}
	})
	return futureFromCell(out)
}

// WhenAllSlice is the dynamic-arity counterpart of WhenAll2/3/4: it
// accepts a slice of homogeneous Futures and passes f the slice of
// results, in the same order as the input slice, once every one of them
// has completed normally.
func WhenAllSlice[T, R any](exec Executor, fs []Future[T], f func([]T) (R, error)) Future[R] {
	out := NewCell[R]()
	if len(fs) == 0 {
		exec.Enqueue(func() {
			completeFromCall(out, func() (R, error) { return f(nil) })
		})
		return futureFromCell(out)
	}
	j := newJoinState(len(fs))
	values := make([]T, len(fs))
	for i := range fs {
		i := i
		fi := fs[i]
		fi.AddSyncCallback(func() {
			v, err := fi.Get()
			values[i] = v
			if done, firstErr := j.arrive(err); done {
				if firstErr != nil {
					out.SetException(firstErr)
					return
				}
				exec.Enqueue(func() {
					completeFromCall(out, func() (R, error) { return f(values) })
				})
			}
		})
	}
	return futureFromCell(out)
}

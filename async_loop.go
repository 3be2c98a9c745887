package carpal

// ExecuteAsyncLoop runs body repeatedly, threading its result back in as
// the next input, for as long as cond holds on the current value; it
// completes with the first value for which cond is false. Any failure
// from cond, body or body's Future propagates to the output immediately.
//
// Grounded on the source's asynchronous retry/polling idiom (see the
// combinator catalog's AsyncLoop row): a recursive continuation chain,
// each step re-entering through exec so a long-running loop never grows
// the calling goroutine's stack and never blocks it either.
func ExecuteAsyncLoop[T any](exec Executor, cond func(T) bool, body func(T) (Future[T], error), seed T) Future[T] {
	out := NewCell[T]()

	var step func(v T)
	step = func(v T) {
		var keepGoing bool
		if panicErr := runProtected(func() { keepGoing = cond(v) }); panicErr != nil {
			out.SetException(panicErr)
			return
		}
		if !keepGoing {
			out.Set(v)
			return
		}
		var next Future[T]
		var callErr error
		if panicErr := runProtected(func() { next, callErr = body(v) }); panicErr != nil {
			out.SetException(panicErr)
			return
		}
		if callErr != nil {
			out.SetException(callErr)
			return
		}
		next.AddSyncCallback(func() {
			nv, nerr := next.Get()
			next.Reset()
			if nerr != nil {
				out.SetException(nerr)
				return
			}
			exec.Enqueue(func() { step(nv) })
		})
	}

	exec.Enqueue(func() { step(seed) })
	return futureFromCell(out)
}

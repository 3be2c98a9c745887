package carpal

import "sync"

// FutureWaiter collects an open-ended set of in-flight Future[Void] and
// blocks until every one of them has completed, even ones added after
// WaitAll has already started waiting. Grounded on the source's
// FutureWaiter: a WaitGroup-shaped counter driven by each Future's own
// completion callback rather than by explicit Add/Done calls.
type FutureWaiter struct {
	mu        sync.Mutex
	cond      *sync.Cond
	remaining int
}

// NewFutureWaiter returns an empty FutureWaiter.
func NewFutureWaiter() *FutureWaiter {
	w := &FutureWaiter{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Add registers f with the waiter. f may already be complete, in which
// case Add has no lasting effect; otherwise WaitAll will block until f
// completes, along with every other Future registered with the waiter.
func (w *FutureWaiter) Add(f Future[Void]) {
	w.mu.Lock()
	w.remaining++
	w.mu.Unlock()
	f.AddSyncCallback(func() {
		w.mu.Lock()
		w.remaining--
		done := w.remaining == 0
		w.mu.Unlock()
		if done {
			w.cond.Broadcast()
		}
	})
}

// WaitAll blocks until every Future ever registered with Add has
// completed. It is safe to call concurrently with further Add calls; a
// Future added while WaitAll is already blocked is still waited for.
func (w *FutureWaiter) WaitAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.remaining > 0 {
		w.cond.Wait()
	}
}

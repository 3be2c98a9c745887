// Package carpal is a library for composing asynchronous computations.
//
// A computation that will produce a value "later" is represented by a
// [Cell]: a shared completion record with a state (pending, normal or
// failed), a stored value or error, and a chain of callbacks to run exactly
// once at the moment of completion. [Promise] and [Future] are thin,
// producer- and consumer-facing handles onto a Cell.
//
// # Combinators
//
// [Then], [ThenAsync], [CatchAll], [CatchTyped],
// [ExecuteAsyncLoop] and the [WhenAll2]/[WhenAll3]/[WhenAll4]/[WhenAllSlice]
// family build new Cells whose completion is a deterministic function of
// one or more input Cells. Every combinator enqueues its user function on
// an [Executor] rather than running it inline on whichever goroutine
// happens to trigger completion, so library consumers get control over
// where work actually runs.
//
// # Executors and cooperative scheduling
//
// An [Executor] is a plain task queue. A [CoopScheduler] refines it with a
// wait/resume rendezvous ([CoopScheduler.WaitFor] / [CoopScheduler.MarkCompleted])
// so that a goroutine blocked on some external event can donate itself to
// run other queued work instead of sitting idle — this is what makes
// [CoopThreadPool] safe to use as a [CoopScheduler] even when a waiter is
// itself a pool worker. [OneThreadCoopScheduler] is the single-goroutine
// specialization: everything it runs, it runs on one pinned goroutine.
//
// Go has no coroutine-frame construct, so the suspend/resume contract that
// a cooperative routine integration needs is expressed as the [Awaitable]
// interface; callers wire their own generators or state machines against
// it without this package depending on any particular coroutine mechanism.
//
// # Streams and timers
//
// [StreamCell] is a bounded single-producer/single-consumer queue of items
// terminated by a sticky EOF or exception value, with the same
// callback-driven back-pressure model as Cell. [AlarmClock] schedules
// one-shot timers (as Future[bool]) and periodic timers (as streams of
// time.Time) against an injectable clock.
//
// # Use cases
//
// Fan-in: goroutines complete Promises; a single consumer chains Futures
// together to process results in one place without its own locking.
//
// Timeout and retry plumbing: [ExecuteAsyncLoop] plus
// [AlarmClock.SetTimerAfter] build retry-with-backoff and deadline races
// without hand-rolled goroutine/channel bookkeeping for every call site.
//
// Structured fan-out/fan-in: [FutureWaiter] keeps fire-and-forget Futures
// alive long enough for their side effects to run, then lets a caller block
// until the whole batch has drained.
package carpal

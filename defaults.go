package carpal

import (
	"runtime"
	"sync"
)

var (
	defaultExecutorOnce sync.Once
	defaultExecutorInst *ThreadPool

	defaultCoopSchedulerOnce sync.Once
	defaultCoopSchedulerInst *CoopThreadPool
)

// DefaultExecutor returns the process-wide singleton [ThreadPool],
// lazily constructed on first use with GOMAXPROCS(0)+1 workers — one
// more than the number of schedulable CPUs, so a worker blocked waiting
// on another task (e.g. inside [FutureWaiter.WaitAll]) does not by
// itself starve the pool. Matches the source's own defaultExecutor()
// function-local static singleton pattern.
func DefaultExecutor() *ThreadPool {
	defaultExecutorOnce.Do(func() {
		defaultExecutorInst = NewThreadPool(WithWorkerCount(runtime.GOMAXPROCS(0) + 1))
	})
	return defaultExecutorInst
}

// DefaultCoopScheduler returns the process-wide singleton
// [CoopThreadPool], sized the same way as [DefaultExecutor].
func DefaultCoopScheduler() *CoopThreadPool {
	defaultCoopSchedulerOnce.Do(func() {
		defaultCoopSchedulerInst = NewCoopThreadPool(WithWorkerCount(runtime.GOMAXPROCS(0) + 1))
	})
	return defaultCoopSchedulerInst
}

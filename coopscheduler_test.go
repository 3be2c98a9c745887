package carpal_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rlupsa/carpal"
	"github.com/stretchr/testify/require"
)

func TestCoopThreadPoolRunsTasksAndRoutines(t *testing.T) {
	pool := carpal.NewCoopThreadPool(carpal.WithWorkerCount(2))
	defer pool.Close()

	var taskRan atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	pool.Enqueue(func() {
		taskRan.Store(true)
		wg.Done()
	})
	wg.Wait()
	require.True(t, taskRan.Load())

	var routineRan atomic.Bool
	var rwg sync.WaitGroup
	rwg.Add(1)
	h := carpal.NewRoutineHandle(func() {
		routineRan.Store(true)
		rwg.Done()
	})
	pool.MarkRunnable(h, false)
	rwg.Wait()
	require.True(t, routineRan.Load())
}

func TestCoopThreadPoolWaitForUnblocksOnCompletion(t *testing.T) {
	pool := carpal.NewCoopThreadPool(carpal.WithWorkerCount(2))
	defer pool.Close()

	id := carpal.NewWaiterID()

	done := make(chan struct{})
	go func() {
		pool.WaitFor(id)
		close(done)
	}()

	pool.Enqueue(func() {
		pool.MarkCompleted(id)
	})

	<-done
}

func TestOneThreadCoopSchedulerWaitForOffPinnedGoroutineReturnsOnceCompleted(t *testing.T) {
	readyCh := make(chan int64, 1)
	schedulerCh := make(chan *carpal.OneThreadCoopScheduler, 1)
	doneCh := make(chan struct{})

	go func() {
		s := carpal.NewOneThreadCoopScheduler()
		schedulerCh <- s
		readyCh <- 0
		<-doneCh
	}()

	s := <-schedulerCh
	<-readyCh

	var ran atomic.Bool
	s.Enqueue(func() { ran.Store(true) })

	id := carpal.NewWaiterID()
	s.MarkCompleted(id)

	// WaitFor from a non-pinned goroutine (this test goroutine) simply
	// blocks until MarkCompleted; since it was already marked, it returns
	// immediately.
	s.WaitFor(id)

	close(doneCh)
}

func TestOneThreadCoopSchedulerRunAllPendingOffPinnedGoroutineIsNoop(t *testing.T) {
	s := carpal.NewOneThreadCoopSchedulerFor(-1)

	var ran atomic.Bool
	s.Enqueue(func() { ran.Store(true) })

	s.RunAllPending()

	require.False(t, ran.Load())
}

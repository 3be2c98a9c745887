package carpal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Executor is a zero-arg task queue with a worker policy, grounded on the
// source's Executor abstract class. Enqueue must never block the caller
// for longer than it takes to add the task to an internal queue.
type Executor interface {
	Enqueue(task func())
}

// ThreadPool is the Executor grounded on the source's ThreadPool: a fixed
// set of worker goroutines draining one shared FIFO, synchronized with a
// mutex and condition variable in place of std::condition_variable.
//
// Close drains by letting running tasks finish and workers exit; tasks
// still sitting in the queue at Close time are dropped (the source's own
// destructor joins worker threads without first emptying m_tasks). It is
// the caller's responsibility to reach quiescence before closing if no
// task may be lost.
type ThreadPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	wg      sync.WaitGroup
	logger  zerolog.Logger
	metrics *poolMetrics
	limit   *BoundedResource
}

// NewThreadPool starts a ThreadPool with the worker count set by
// [WithWorkerCount] (default 1) and returns it running.
func NewThreadPool(opts ...Option) *ThreadPool {
	c := applyOptions(opts)
	p := &ThreadPool{
		logger: c.logger,
	}
	p.cond = sync.NewCond(&p.mu)
	if c.queueCapacity > 0 {
		p.tasks = make([]func(), 0, c.queueCapacity)
	}
	if c.registerer != nil {
		p.metrics = newPoolMetrics(c.registerer, "threadpool")
	}
	if c.concurrencyLimit > 0 {
		p.limit = NewBoundedResource(c.concurrencyLimit)
	}
	p.wg.Add(c.workerCount)
	for i := 0; i < c.workerCount; i++ {
		go p.workerLoop()
	}
	return p
}

// Enqueue adds task to the pool's FIFO. Enqueue after Close silently
// drops task, matching the source's "no task-loss guarantee" contract in
// the other direction: a late enqueue on a closed pool is a no-op rather
// than a panic, since a library has no way to know whether its caller
// still holds a reference to react to an error.
func (p *ThreadPool) Enqueue(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Debug().Msg("carpal: task enqueued on closed ThreadPool, dropped")
		return
	}
	p.tasks = append(p.tasks, task)
	if p.metrics != nil {
		p.metrics.queueDepth.Set(float64(len(p.tasks)))
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// Close marks the pool closed and wakes every worker; a worker already
// running a task finishes it, then every worker exits without picking up
// anything left in the queue. Close blocks until every worker has
// exited.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *ThreadPool) workerLoop() {
	defer p.wg.Done()
	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return
		}
		if len(p.tasks) > 0 {
			task := p.tasks[0]
			p.tasks = p.tasks[1:]
			if p.metrics != nil {
				p.metrics.queueDepth.Set(float64(len(p.tasks)))
			}
			p.mu.Unlock()
			p.runTask(task)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
}

// runTask executes task, blocking first on p.limit if the pool was
// constructed with [WithConcurrencyLimit], so the pool never runs more
// than that many tasks at once regardless of worker count.
func (p *ThreadPool) runTask(task func()) {
	if p.limit != nil {
		if _, err := p.limit.Acquire(context.Background(), 1).Get(); err != nil {
			p.logger.Error().Err(err).Msg("carpal: ThreadPool concurrency limit acquire failed")
			return
		}
		defer p.limit.Release(1)
	}
	defer func() {
		if v := recover(); v != nil {
			p.logger.Error().Interface("panic", v).Msg("carpal: task panicked in ThreadPool worker")
		}
	}()
	start := time.Now()
	task()
	if p.metrics != nil {
		p.metrics.taskDuration.Observe(time.Since(start).Seconds())
	}
}

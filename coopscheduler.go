package carpal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RoutineHandle identifies a suspended cooperative routine that has been
// marked runnable, paired with the closure that resumes it. It is the Go
// surfacing of the source's std::coroutine_handle<void>: since Go has no
// compiler-level coroutine frame, the "handle" is simply whatever closure
// a hand-written generator or state machine supplies to resume itself.
type RoutineHandle struct {
	ID     uuid.UUID
	Resume func()
}

// NewRoutineHandle returns a RoutineHandle with a fresh identity wrapping
// resume.
func NewRoutineHandle(resume func()) RoutineHandle {
	return RoutineHandle{ID: uuid.New(), Resume: resume}
}

// WaiterID identifies a pending WaitFor call, replacing the source's
// address-of-local-variable identity (`const void* id`) with a value that
// survives being logged or copied.
type WaiterID = uuid.UUID

// NewWaiterID returns a fresh WaiterID.
func NewWaiterID() WaiterID { return uuid.New() }

// CoopScheduler refines Executor with the primitives a cooperative
// routine integration needs: tracking which suspended routines have
// become runnable, and letting a caller donate its own goroutine to other
// work while waiting for a specific outcome to become available.
//
// Grounded on the source's CoroutineScheduler abstract class.
type CoopScheduler interface {
	Executor

	// InitSwitchThread reports whether a routine about to start should
	// hop onto a scheduler-managed goroutine rather than continue
	// inline on the caller's.
	InitSwitchThread() bool

	// MarkRunnable records that h's await condition is satisfied and it
	// should be resumed. expectEndSoon is a scheduling hint: a routine
	// expected to finish soon may be resumed ahead of routines already
	// queued.
	MarkRunnable(h RoutineHandle, expectEndSoon bool)

	// MarkCompleted records that the WaitFor call identified by id may
	// now return.
	MarkCompleted(id WaiterID)

	// WaitFor blocks the calling goroutine until MarkCompleted(id) has
	// been called. Depending on the implementation, the caller's
	// goroutine may run other scheduled work while waiting.
	WaitFor(id WaiterID)

	// Address identifies the scheduler instance, for logging.
	Address() any
}

// CoopThreadPool extends [ThreadPool]'s parallel worker model with
// routine-handle tracking, so coroutine-style code can run across a
// worker pool instead of being pinned to one goroutine. Grounded on the
// source's ThreadPool combined with CoroutineScheduler: workers additionally
// drain a runnable-routine queue alongside the plain task queue, and
// WaitFor lets a worker goroutine "help" rather than sit idle, avoiding
// deadlock when the only thread that could unblock a wait is the one
// blocked on it.
type CoopThreadPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	tasks     []func()
	runnable  []RoutineHandle
	completed map[WaiterID]struct{}
	workerIDs map[int64]struct{}
	closed    bool
	wg        sync.WaitGroup
	logger    zerolog.Logger
	metrics   *poolMetrics
	limit     *BoundedResource
}

// NewCoopThreadPool starts a CoopThreadPool with the worker count set by
// [WithWorkerCount] (default 1).
func NewCoopThreadPool(opts ...Option) *CoopThreadPool {
	c := applyOptions(opts)
	p := &CoopThreadPool{
		logger:    c.logger,
		completed: make(map[WaiterID]struct{}),
		workerIDs: make(map[int64]struct{}, c.workerCount),
	}
	p.cond = sync.NewCond(&p.mu)
	if c.registerer != nil {
		p.metrics = newPoolMetrics(c.registerer, "coopthreadpool")
	}
	if c.concurrencyLimit > 0 {
		p.limit = NewBoundedResource(c.concurrencyLimit)
	}
	ready := make(chan struct{})
	p.wg.Add(c.workerCount)
	for i := 0; i < c.workerCount; i++ {
		go p.workerLoop(ready)
	}
	for i := 0; i < c.workerCount; i++ {
		<-ready
	}
	return p
}

func (p *CoopThreadPool) registerSelf(ready chan struct{}) {
	id := currentGoroutineID()
	p.mu.Lock()
	p.workerIDs[id] = struct{}{}
	p.mu.Unlock()
	if ready != nil {
		ready <- struct{}{}
	}
}

func (p *CoopThreadPool) isWorker() bool {
	id := currentGoroutineID()
	p.mu.Lock()
	_, ok := p.workerIDs[id]
	p.mu.Unlock()
	return ok
}

// Enqueue adds task to the shared task FIFO.
func (p *CoopThreadPool) Enqueue(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.tasks = append(p.tasks, task)
	if p.metrics != nil {
		p.metrics.queueDepth.Set(float64(len(p.tasks) + len(p.runnable)))
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// InitSwitchThread always reports true for a parallel pool: there is no
// single "home" goroutine to stay on.
func (p *CoopThreadPool) InitSwitchThread() bool { return true }

// MarkRunnable queues h for execution by the next available worker.
func (p *CoopThreadPool) MarkRunnable(h RoutineHandle, expectEndSoon bool) {
	p.mu.Lock()
	if expectEndSoon {
		p.runnable = append([]RoutineHandle{h}, p.runnable...)
	} else {
		p.runnable = append(p.runnable, h)
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// MarkCompleted wakes any WaitFor(id) call.
func (p *CoopThreadPool) MarkCompleted(id WaiterID) {
	p.mu.Lock()
	p.completed[id] = struct{}{}
	p.mu.Unlock()
	p.cond.Broadcast()
}

// WaitFor blocks until MarkCompleted(id). If the calling goroutine is
// itself a pool worker, it resumes runnable routines and executes queued
// tasks while waiting instead of sitting idle, which is what prevents a
// worker that is the last one free from deadlocking against itself.
func (p *CoopThreadPool) WaitFor(id WaiterID) {
	helping := p.isWorker()
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if _, done := p.completed[id]; done {
			delete(p.completed, id)
			return
		}
		if helping && len(p.runnable) > 0 {
			h := p.runnable[0]
			p.runnable = p.runnable[1:]
			p.mu.Unlock()
			h.Resume()
			p.mu.Lock()
			continue
		}
		if helping && len(p.tasks) > 0 {
			task := p.tasks[0]
			p.tasks = p.tasks[1:]
			p.mu.Unlock()
			p.runTask(task)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
}

// Address identifies this pool for logging.
func (p *CoopThreadPool) Address() any { return p }

// Close stops accepting new work and waits for workers to exit. Routines
// and tasks still queued at Close time are dropped, matching ThreadPool's
// own shutdown contract.
func (p *CoopThreadPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *CoopThreadPool) workerLoop(ready chan struct{}) {
	p.registerSelf(ready)
	defer p.wg.Done()
	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return
		}
		if len(p.runnable) > 0 {
			h := p.runnable[0]
			p.runnable = p.runnable[1:]
			p.mu.Unlock()
			h.Resume()
			p.mu.Lock()
			continue
		}
		if len(p.tasks) > 0 {
			task := p.tasks[0]
			p.tasks = p.tasks[1:]
			p.mu.Unlock()
			p.runTask(task)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
}

// runTask executes task, blocking first on p.limit if the pool was
// constructed with [WithConcurrencyLimit].
func (p *CoopThreadPool) runTask(task func()) {
	if p.limit != nil {
		if _, err := p.limit.Acquire(context.Background(), 1).Get(); err != nil {
			p.logger.Error().Err(err).Msg("carpal: CoopThreadPool concurrency limit acquire failed")
			return
		}
		defer p.limit.Release(1)
	}
	defer func() {
		if v := recover(); v != nil {
			p.logger.Error().Interface("panic", v).Msg("carpal: task panicked in CoopThreadPool worker")
		}
	}()
	start := time.Now()
	task()
	if p.metrics != nil {
		p.metrics.taskDuration.Observe(time.Since(start).Seconds())
	}
}

// OneThreadCoopScheduler pins all cooperative scheduling to a single host
// goroutine, identified at construction (or the calling goroutine, if
// constructed with [NewOneThreadCoopScheduler]). Enqueue, MarkRunnable
// and MarkCompleted are safe from any goroutine. WaitFor runs queued work
// only on the pinned goroutine and simply blocks anywhere else;
// RunAllPending does nothing off the pinned goroutine.
//
// Grounded on the source's OneThreadScheduler.
type OneThreadCoopScheduler struct {
	pinnedID int64

	mu        sync.Mutex
	cond      *sync.Cond
	ending    bool
	tasks     []func()
	runnable  []RoutineHandle
	completed map[WaiterID]struct{}
	logger    zerolog.Logger
}

// NewOneThreadCoopScheduler pins the scheduler to the calling goroutine.
func NewOneThreadCoopScheduler(opts ...Option) *OneThreadCoopScheduler {
	return newOneThreadCoopScheduler(currentGoroutineID(), opts)
}

// NewOneThreadCoopSchedulerFor pins the scheduler to pinnedGoroutineID,
// for tests that spin up a dedicated goroutine and want to pin the
// scheduler to it from the outside.
func NewOneThreadCoopSchedulerFor(pinnedGoroutineID int64, opts ...Option) *OneThreadCoopScheduler {
	return newOneThreadCoopScheduler(pinnedGoroutineID, opts)
}

func newOneThreadCoopScheduler(pinnedID int64, opts []Option) *OneThreadCoopScheduler {
	c := applyOptions(opts)
	s := &OneThreadCoopScheduler{
		pinnedID:  pinnedID,
		completed: make(map[WaiterID]struct{}),
		logger:    c.logger,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Enqueue adds task to the pinned goroutine's FIFO.
func (s *OneThreadCoopScheduler) Enqueue(task func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	s.cond.Signal()
}

// InitSwitchThread reports whether the caller is not the pinned goroutine.
func (s *OneThreadCoopScheduler) InitSwitchThread() bool {
	return currentGoroutineID() != s.pinnedID
}

// MarkRunnable queues h to run on the pinned goroutine.
func (s *OneThreadCoopScheduler) MarkRunnable(h RoutineHandle, expectEndSoon bool) {
	s.mu.Lock()
	s.runnable = append(s.runnable, h)
	s.mu.Unlock()
	s.logger.Debug().Str("routine", h.ID.String()).Msg("carpal: routine marked runnable")
	s.cond.Signal()
}

// MarkCompleted wakes any WaitFor(id) call.
func (s *OneThreadCoopScheduler) MarkCompleted(id WaiterID) {
	s.mu.Lock()
	s.completed[id] = struct{}{}
	s.mu.Unlock()
	s.cond.Broadcast()
}

// WaitFor blocks until MarkCompleted(id). Called from the pinned
// goroutine, it runs routines and tasks in FIFO order while waiting, so a
// single-goroutine program never deadlocks waiting on work only it could
// perform. Called from any other goroutine, it simply blocks.
func (s *OneThreadCoopScheduler) WaitFor(id WaiterID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := currentGoroutineID() == s.pinnedID
	for {
		if _, done := s.completed[id]; done {
			delete(s.completed, id)
			return
		}
		if !pinned {
			s.cond.Wait()
			continue
		}
		if len(s.runnable) > 0 {
			h := s.runnable[0]
			s.runnable = s.runnable[1:]
			s.mu.Unlock()
			h.Resume()
			s.mu.Lock()
			continue
		}
		if len(s.tasks) > 0 {
			task := s.tasks[0]
			s.tasks = s.tasks[1:]
			s.mu.Unlock()
			runProtectedVoid(task)
			s.mu.Lock()
			continue
		}
		s.cond.Wait()
	}
}

// RunAllPending drains every currently-queued routine and task without
// blocking. Legal only from the pinned goroutine; a call from any other
// goroutine is a silent no-op, matching the source's own guard.
func (s *OneThreadCoopScheduler) RunAllPending() {
	if currentGoroutineID() != s.pinnedID {
		s.logger.Debug().Msg("carpal: RunAllPending called off the pinned goroutine, ignored")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if len(s.runnable) > 0 {
			h := s.runnable[0]
			s.runnable = s.runnable[1:]
			s.mu.Unlock()
			h.Resume()
			s.mu.Lock()
			continue
		}
		if len(s.tasks) > 0 {
			task := s.tasks[0]
			s.tasks = s.tasks[1:]
			s.mu.Unlock()
			runProtectedVoid(task)
			s.mu.Lock()
			continue
		}
		return
	}
}

// Address identifies this scheduler for logging.
func (s *OneThreadCoopScheduler) Address() any { return s }

func runProtectedVoid(f func()) {
	_ = runProtected(f)
}

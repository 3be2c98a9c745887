package carpal

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TimerRecord is one entry in an [AlarmClock]'s ordered set of armed
// timers. Grounded on the source's carpal_private::TimerFutureObject,
// ordered primarily by deadline and, to break ties, by a monotonically
// assigned sequence number rather than the source's pointer-address
// comparison (p < q) — Go values carry no stable address once moved by
// the garbage collector, so a uint64 counter assigned under the clock's
// mutex stands in for it (see DESIGN.md Open Question 1). The uuid in id
// is an identity only and plays no part in the ordering.
type TimerRecord struct {
	id       uuid.UUID
	deadline time.Time
	seq      uint64
	period   *time.Duration

	oneShot  *Cell[bool]
	periodic StreamSink[time.Time, Void]
	isStream bool

	// done guards the one-shot oneShot.Set call, a single-owner CAS
	// shared by trigger and completeCanceled: fireDue pops a record out
	// of the heap and calls trigger without a.mu held, so a concurrent
	// Cancel can observe the same "not yet completed" state and race to
	// complete the same Cell twice, which panics.
	done atomic.Bool

	canceled bool
	index    int // heap bookkeeping
}

type timerHeap []*TimerRecord

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x any) {
	r := x.(*TimerRecord)
	r.index = len(*h)
	*h = append(*h, r)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	r.index = -1
	return r
}

// AlarmClock drives one-shot and periodic timers from a single dedicated
// goroutine, grounded on the source's AlarmClock: a mutex-guarded ordered
// set of pending timers plus one thread that sleeps until the earliest
// deadline, wakes, triggers everything due, and repeats. The Go port
// substitutes a benbjohnson/clock Clock for std::chrono::system_clock so
// tests can drive it with a *clock.Mock instead of real sleeps.
type AlarmClock struct {
	clk clock.Clock

	mu      sync.Mutex
	timers  timerHeap
	nextSeq uint64
	closed  bool
	wake    chan struct{}

	logger  zerolog.Logger
	metrics *timerMetrics

	done chan struct{}
}

// NewAlarmClock starts an AlarmClock using the clock from [WithClock]
// (default the real wall clock) and, if [WithMetrics] was given, a
// timers-pending gauge.
func NewAlarmClock(opts ...Option) *AlarmClock {
	c := applyOptions(opts)
	a := &AlarmClock{
		clk:    c.clock,
		logger: c.logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	heap.Init(&a.timers)
	if c.registerer != nil {
		a.metrics = newTimerMetrics(c.registerer, "alarmclock")
	}
	go a.driverLoop()
	return a
}

func (a *AlarmClock) signalWake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Close cancels every pending timer and stops the driver goroutine.
func (a *AlarmClock) Close() {
	a.mu.Lock()
	a.closed = true
	pending := a.timers
	a.timers = nil
	if a.metrics != nil {
		a.metrics.pending.Set(0)
	}
	a.mu.Unlock()
	a.signalWake()
	for _, r := range pending {
		a.completeCanceled(r)
	}
	<-a.done
}

// SetTimer arms a one-shot timer firing at when, returning a handle to
// its Future[bool] (true if triggered, false if canceled first).
func (a *AlarmClock) SetTimer(when time.Time) Timer {
	r := a.arm(when, nil)
	r.oneShot = NewCell[bool]()
	return Timer{clk: a, record: r}
}

// SetTimerAfter arms a one-shot timer firing delta from now.
func (a *AlarmClock) SetTimerAfter(delta time.Duration) Timer {
	return a.SetTimer(a.clk.Now().Add(delta))
}

// SetPeriodicTimer arms a timer that ticks every period, starting one
// period from now, emitting each fire as an Item on the returned
// PeriodicTimer's stream. This generalizes the source's one-shot
// TimerRecord with re-insertion on every trigger (see DESIGN.md Open
// Question 2 — the retrieved source shows no periodic timer API; this is
// a supplemented feature built in its idiom).
func (a *AlarmClock) SetPeriodicTimer(period time.Duration) PeriodicTimer {
	return a.SetPeriodicTimerStartAfter(period, period)
}

// SetPeriodicTimerStartAt is [SetPeriodicTimer] with an explicit first
// tick time.
func (a *AlarmClock) SetPeriodicTimerStartAt(period time.Duration, at time.Time) PeriodicTimer {
	source, sink := NewStream[time.Time, Void](1)
	r := a.arm(at, &period)
	r.periodic = sink
	r.isStream = true
	return PeriodicTimer{clk: a, record: r, source: source}
}

// SetPeriodicTimerStartAfter is [SetPeriodicTimer] with an explicit delay
// before the first tick.
func (a *AlarmClock) SetPeriodicTimerStartAfter(period, delay time.Duration) PeriodicTimer {
	return a.SetPeriodicTimerStartAt(period, a.clk.Now().Add(delay))
}

func (a *AlarmClock) arm(when time.Time, period *time.Duration) *TimerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := &TimerRecord{id: uuid.New(), deadline: when, period: period, seq: a.nextSeq}
	a.nextSeq++
	heap.Push(&a.timers, r)
	if a.metrics != nil {
		a.metrics.pending.Set(float64(len(a.timers)))
	}
	if a.timers[0] == r {
		a.signalWake()
	}
	return r
}

// cancelTimer removes r from the pending set, completing its output as
// canceled if it had not already fired.
func (a *AlarmClock) cancelTimer(r *TimerRecord) {
	a.mu.Lock()
	if r.canceled {
		a.mu.Unlock()
		return
	}
	r.canceled = true
	wasFirst := len(a.timers) > 0 && a.timers[0] == r
	if r.index >= 0 && r.index < len(a.timers) && a.timers[r.index] == r {
		heap.Remove(&a.timers, r.index)
	}
	if a.metrics != nil {
		a.metrics.pending.Set(float64(len(a.timers)))
	}
	a.mu.Unlock()
	if wasFirst {
		a.signalWake()
	}
	a.completeCanceled(r)
}

func (a *AlarmClock) completeCanceled(r *TimerRecord) {
	if r.isStream {
		r.periodic.Close(Void{})
		return
	}
	if r.oneShot != nil && r.done.CompareAndSwap(false, true) {
		r.oneShot.Set(false)
	}
}

func (a *AlarmClock) trigger(r *TimerRecord) {
	if r.isStream {
		a.mu.Lock()
		canceled := r.canceled
		a.mu.Unlock()
		if canceled {
			return
		}
		r.periodic.Yield(r.deadline)
		if r.period != nil {
			next := r.deadline.Add(*r.period)
			a.mu.Lock()
			if r.canceled {
				a.mu.Unlock()
				return
			}
			r.deadline = next
			r.seq = a.nextSeq
			a.nextSeq++
			heap.Push(&a.timers, r)
			if a.metrics != nil {
				a.metrics.pending.Set(float64(len(a.timers)))
			}
			a.mu.Unlock()
		}
		return
	}
	if r.oneShot != nil && r.done.CompareAndSwap(false, true) {
		r.oneShot.Set(true)
	}
}

func (a *AlarmClock) driverLoop() {
	defer close(a.done)
	for {
		a.mu.Lock()
		if len(a.timers) == 0 {
			if a.closed {
				a.mu.Unlock()
				return
			}
			a.mu.Unlock()
			<-a.wake
			continue
		}
		next := a.timers[0]
		a.mu.Unlock()

		d := next.deadline.Sub(a.clk.Now())
		if d <= 0 {
			a.fireDue()
			continue
		}
		t := a.clk.Timer(d)
		select {
		case <-t.C:
			a.fireDue()
		case <-a.wake:
			t.Stop()
			a.mu.Lock()
			closedNow := a.closed && len(a.timers) == 0
			a.mu.Unlock()
			if closedNow {
				return
			}
		}
	}
}

func (a *AlarmClock) fireDue() {
	now := a.clk.Now()
	var due []*TimerRecord
	a.mu.Lock()
	for len(a.timers) > 0 && !a.timers[0].deadline.After(now) {
		due = append(due, heap.Pop(&a.timers).(*TimerRecord))
	}
	if a.metrics != nil {
		a.metrics.pending.Set(float64(len(a.timers)))
	}
	a.mu.Unlock()
	a.logger.Debug().Int("count", len(due)).Msg("carpal: firing due timers")
	for _, r := range due {
		a.trigger(r)
	}
}

// AlarmClockDefault returns the process-wide singleton AlarmClock,
// matching the source's alarmClock() function-local static.
func AlarmClockDefault() *AlarmClock {
	defaultAlarmClockOnce.Do(func() {
		defaultAlarmClockInstance = NewAlarmClock()
	})
	return defaultAlarmClockInstance
}

var (
	defaultAlarmClockOnce     sync.Once
	defaultAlarmClockInstance *AlarmClock
)

// Timer is a handle on a one-shot armed timer.
type Timer struct {
	clk    *AlarmClock
	record *TimerRecord
}

// Future returns a Future[bool] completing with true if the timer fired,
// or false if it was canceled first.
func (t Timer) Future() Future[bool] { return futureFromCell(t.record.oneShot) }

// Cancel cancels the timer if it has not already fired.
func (t Timer) Cancel() { t.clk.cancelTimer(t.record) }

// PeriodicTimer is a handle on an armed periodic timer.
type PeriodicTimer struct {
	clk    *AlarmClock
	record *TimerRecord
	source StreamSource[time.Time, Void]
}

// Stream returns the StreamSource of fire times. Cancel pushes the
// terminal Eof marker onto it.
func (p PeriodicTimer) Stream() StreamSource[time.Time, Void] { return p.source }

// Cancel stops future ticks and closes the stream.
func (p PeriodicTimer) Cancel() { p.clk.cancelTimer(p.record) }

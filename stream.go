package carpal

import (
	"iter"
	"sync"
)

// StreamValueKind distinguishes the three shapes a StreamValue can hold.
type StreamValueKind int

const (
	// StreamItem marks a regular element.
	StreamItem StreamValueKind = iota
	// StreamEof marks the terminal end-of-stream marker.
	StreamEof
	// StreamException marks a terminal failure.
	StreamException
)

// StreamValue is one value conveyed through a [StreamCell]: a regular
// Item, a terminal Eof marker (carrying an arbitrary payload, matching
// the source's StreamValue<Item,Eof> rather than the Eof=void
// specialization, which Go expresses with Eof=Void), or a terminal error.
//
// Grounded on the source's StreamValue template: a closed three-way union
// rather than Go's usual "separate channels/bool" idiom, because the Eof
// and Exception cases both carry payloads (a value, an error) and both
// terminate the stream — sticking around for repeated reads instead of
// being drained away like a closed-channel zero value would be.
type StreamValue[Item, Eof any] struct {
	kind Kind
	item Item
	eof  Eof
	err  error
}

type Kind = StreamValueKind

// StreamItemValue wraps a regular item.
func StreamItemValue[Item, Eof any](v Item) StreamValue[Item, Eof] {
	return StreamValue[Item, Eof]{kind: StreamItem, item: v}
}

// StreamEofValue wraps a terminal Eof marker.
func StreamEofValue[Item, Eof any](v Eof) StreamValue[Item, Eof] {
	return StreamValue[Item, Eof]{kind: StreamEof, eof: v}
}

// StreamExceptionValue wraps a terminal error.
func StreamExceptionValue[Item, Eof any](err error) StreamValue[Item, Eof] {
	return StreamValue[Item, Eof]{kind: StreamException, err: err}
}

// Kind reports which of Item/Eof/Exception v holds.
func (v StreamValue[Item, Eof]) Kind() Kind { return v.kind }

// IsItem reports whether v holds a regular item.
func (v StreamValue[Item, Eof]) IsItem() bool { return v.kind == StreamItem }

// IsEof reports whether v holds the terminal Eof marker.
func (v StreamValue[Item, Eof]) IsEof() bool { return v.kind == StreamEof }

// IsException reports whether v holds a terminal error.
func (v StreamValue[Item, Eof]) IsException() bool { return v.kind == StreamException }

// Item returns v's item, or the zero value if v does not hold one.
func (v StreamValue[Item, Eof]) Item() Item { return v.item }

// Eof returns v's Eof payload, or the zero value if v is not the Eof case.
func (v StreamValue[Item, Eof]) Eof() Eof { return v.eof }

// Exception returns v's error, or nil if v is not the Exception case.
func (v StreamValue[Item, Eof]) Exception() error { return v.err }

// StreamCell is a bounded single-producer single-consumer queue of
// StreamValue, grounded on the source's
// SingleProducerSingleConsumerQueue<Item,Eof>. Once a terminal value
// (Eof or Exception) has been enqueued, it is never removed by Dequeue —
// every subsequent Dequeue call returns the same terminal value, mirroring
// Cell's own sticky-completion discipline.
type StreamCell[Item, Eof any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	queue    []StreamValue[Item, Eof]
	terminal bool

	onValueAvailable func()
	onSlotAvailable  func()
}

// NewStreamCell returns a new StreamCell that allows up to capacity
// regular items to be enqueued without a consumer having dequeued any.
// capacity <= 0 is treated as 1, the source's own default queueSize.
func NewStreamCell[Item, Eof any](capacity int) *StreamCell[Item, Eof] {
	if capacity <= 0 {
		capacity = 1
	}
	s := &StreamCell[Item, Eof]{capacity: capacity}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// IsValueAvailable reports whether Dequeue would return immediately.
func (s *StreamCell[Item, Eof]) IsValueAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

// IsSlotAvailable reports whether Enqueue of a regular Item would return
// immediately.
func (s *StreamCell[Item, Eof]) IsSlotAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal || len(s.queue) < s.capacity
}

// Enqueue adds v to the queue. If v is a regular item and the queue is at
// capacity, Enqueue blocks until a consumer dequeues something (or the
// stream is already terminal, after which further item enqueues are
// pointless but not rejected outright — matching the source's "no further
// send() shall be called" comment, a caller-side contract rather than a
// runtime-enforced one). Eof and Exception values are always accepted
// immediately, even over capacity, since they are the last value ever
// enqueued.
func (s *StreamCell[Item, Eof]) Enqueue(v StreamValue[Item, Eof]) {
	s.mu.Lock()
	for v.IsItem() && len(s.queue) >= s.capacity && !s.terminal {
		s.cond.Wait()
	}
	s.queue = append(s.queue, v)
	if !v.IsItem() {
		s.terminal = true
	}
	cb := s.onValueAvailable
	s.onValueAvailable = nil
	s.mu.Unlock()
	s.cond.Broadcast()
	if cb != nil {
		cb()
	}
}

// Dequeue blocks until a value is available, then returns it. A terminal
// value (Eof or Exception) is never removed: repeated Dequeue calls after
// the stream has ended keep returning it.
func (s *StreamCell[Item, Eof]) Dequeue() StreamValue[Item, Eof] {
	s.mu.Lock()
	for len(s.queue) == 0 {
		s.cond.Wait()
	}
	v := s.queue[0]
	if v.IsItem() {
		s.queue = s.queue[1:]
		cb := s.onSlotAvailable
		s.onSlotAvailable = nil
		s.mu.Unlock()
		s.cond.Broadcast()
		if cb != nil {
			cb()
		}
		return v
	}
	s.mu.Unlock()
	return v
}

// SetOnValueAvailableOnceCallback arranges for cb to run, exactly once,
// the next time a value becomes available. If a value is already
// available, cb runs immediately on the calling goroutine.
func (s *StreamCell[Item, Eof]) SetOnValueAvailableOnceCallback(cb func()) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.onValueAvailable = cb
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	cb()
}

// SetOnSlotAvailableOnceCallback arranges for cb to run, exactly once,
// the next time a regular-item slot becomes available. If a slot is
// already available, cb runs immediately on the calling goroutine.
func (s *StreamCell[Item, Eof]) SetOnSlotAvailableOnceCallback(cb func()) {
	s.mu.Lock()
	if s.terminal || len(s.queue) < s.capacity {
		s.mu.Unlock()
		cb()
		return
	}
	s.onSlotAvailable = cb
	s.mu.Unlock()
}

// ItemAwaitable returns an [Awaitable] adapter suspending until a value
// is available to Dequeue.
func (s *StreamCell[Item, Eof]) ItemAwaitable() Awaitable {
	return streamItemAwaitable[Item, Eof]{s: s}
}

type streamItemAwaitable[Item, Eof any] struct {
	s *StreamCell[Item, Eof]
}

func (a streamItemAwaitable[Item, Eof]) AwaitReady() bool { return a.s.IsValueAvailable() }

func (a streamItemAwaitable[Item, Eof]) AwaitSuspend(resume func()) {
	a.s.SetOnValueAvailableOnceCallback(resume)
}

func (a streamItemAwaitable[Item, Eof]) AwaitResume() (any, error) {
	v := a.s.Dequeue()
	if v.IsException() {
		return nil, v.Exception()
	}
	return v, nil
}

// StreamSource is the consumer-facing handle on a [StreamCell], grounded
// on the source's StreamSource<Item,Eof>.
type StreamSource[Item, Eof any] struct {
	cell *StreamCell[Item, Eof]
}

// NewStreamSource wraps cell as a StreamSource.
func NewStreamSource[Item, Eof any](cell *StreamCell[Item, Eof]) StreamSource[Item, Eof] {
	return StreamSource[Item, Eof]{cell: cell}
}

// Dequeue returns the next StreamValue, blocking as [StreamCell.Dequeue]
// does.
func (s StreamSource[Item, Eof]) Dequeue() StreamValue[Item, Eof] { return s.cell.Dequeue() }

// NextItem collapses the Eof case: it returns (item, true, nil) for a
// regular item, (zero, false, nil) at Eof, or (zero, false, err) on a
// terminal exception. Specialize Eof as Void to match the source's
// StreamSource<Item,void>::getNextItem.
func (s StreamSource[Item, Eof]) NextItem() (Item, bool, error) {
	v := s.cell.Dequeue()
	switch v.Kind() {
	case StreamItem:
		return v.Item(), true, nil
	case StreamEof:
		var zero Item
		return zero, false, nil
	default:
		var zero Item
		return zero, false, v.Exception()
	}
}

// Range calls f with each item in turn until Eof, an exception, or f
// returns false. It reports the terminal exception, if any.
func (s StreamSource[Item, Eof]) Range(f func(Item) bool) error {
	for {
		item, ok, err := s.NextItem()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !f(item) {
			return nil
		}
	}
}

// Seq adapts s into an iter.Seq2 so callers can write
// `for item, err := range source.Seq() { ... }`, the Go 1.23 range-over-
// func idiom this package uses in place of the source's coroutine-driven
// begin()/end() iterator, grounded on the teacher's own FromSeq/
// ConcatSeq/MergeSeq use of iter.Seq.
func (s StreamSource[Item, Eof]) Seq() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for {
			item, ok, err := s.NextItem()
			if err != nil {
				yield(item, err)
				return
			}
			if !ok {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Queue returns the underlying StreamCell, for handing off consumption
// across a routine boundary.
func (s StreamSource[Item, Eof]) Queue() *StreamCell[Item, Eof] { return s.cell }

// StreamSink is the producer-facing handle on a [StreamCell].
type StreamSink[Item, Eof any] struct {
	cell *StreamCell[Item, Eof]
}

// NewStreamSink wraps cell as a StreamSink.
func NewStreamSink[Item, Eof any](cell *StreamCell[Item, Eof]) StreamSink[Item, Eof] {
	return StreamSink[Item, Eof]{cell: cell}
}

// Yield enqueues a regular item, blocking if the queue is full.
func (s StreamSink[Item, Eof]) Yield(item Item) {
	s.cell.Enqueue(StreamItemValue[Item, Eof](item))
}

// Close enqueues the terminal Eof marker.
func (s StreamSink[Item, Eof]) Close(eof Eof) {
	s.cell.Enqueue(StreamEofValue[Item, Eof](eof))
}

// Fail enqueues a terminal exception.
func (s StreamSink[Item, Eof]) Fail(err error) {
	s.cell.Enqueue(StreamExceptionValue[Item, Eof](err))
}

// NewStream is a convenience constructor returning a linked
// StreamSource/StreamSink pair over a fresh StreamCell of the given
// capacity.
func NewStream[Item, Eof any](capacity int) (StreamSource[Item, Eof], StreamSink[Item, Eof]) {
	cell := NewStreamCell[Item, Eof](capacity)
	return NewStreamSource(cell), NewStreamSink(cell)
}

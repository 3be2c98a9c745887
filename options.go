package carpal

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// config collects the functional-options settings shared by ThreadPool,
// CoopThreadPool, OneThreadCoopScheduler and AlarmClock. Not every component
// honors every field: WithQueueCapacity is meaningless to AlarmClock,
// WithClock is meaningless to a ThreadPool. Components document which
// fields of the final config they read.
type config struct {
	workerCount      int
	queueCapacity    int
	logger           zerolog.Logger
	clock            clock.Clock
	registerer       prometheus.Registerer
	concurrencyLimit int64
}

func defaultConfig() config {
	return config{
		workerCount:   1,
		queueCapacity: 0,
		logger:        currentDefaultLogger(),
		clock:         clock.New(),
	}
}

// Option configures a constructor in this package via the functional
// options pattern, matching the shape the teacher's own constructors and
// the pack's solsw-future.New use for embeddable-library configuration.
type Option func(*config)

// WithWorkerCount sets the number of worker goroutines a [ThreadPool] (or
// ThreadPool-backed [CoopScheduler]) runs. Ignored by components with no
// notion of a worker pool.
func WithWorkerCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithQueueCapacity hints the initial capacity of a component's internal
// task queue. It is a sizing hint only; queues still grow unbounded beyond
// it.
func WithQueueCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueCapacity = n
		}
	}
}

// WithLogger attaches a structured logger to the constructed component.
// The default is the logger last set by [SetDefaultLogger], which starts
// out as zerolog.Nop(), matching the teacher's release-build silence for
// its own CARPAL_LOG_DEBUG call sites.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock overrides the time source a component reads from, letting
// tests drive an [AlarmClock] with a *clock.Mock instead of real time.
func WithClock(cl clock.Clock) Option {
	return func(c *config) { c.clock = cl }
}

// WithMetrics registers the component's Prometheus collectors against reg.
// Without it (the default) the component creates no collectors and
// records no metrics at all.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.registerer = reg }
}

// WithConcurrencyLimit caps the number of tasks a [ThreadPool] or
// [CoopThreadPool] runs at once to n, independently of its worker count,
// by gating task execution behind a [BoundedResource]. A pool with more
// workers than the limit simply leaves the excess idle rather than
// rejecting work. n <= 0 leaves the pool uncapped (the default).
func WithConcurrencyLimit(n int64) Option {
	return func(c *config) { c.concurrencyLimit = n }
}

func applyOptions(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

package carpal

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics is the optional instrumentation a [ThreadPool] exposes when
// constructed with [WithMetrics]. Grounded on resonatehq-resonate's use of
// prometheus/client_golang for subsystem metrics: a small bundle of
// collectors that a pool creates, registers and updates only when a
// Registerer was supplied.
type poolMetrics struct {
	queueDepth   prometheus.Gauge
	taskDuration prometheus.Histogram
}

func newPoolMetrics(reg prometheus.Registerer, name string) *poolMetrics {
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carpal",
			Subsystem: name,
			Name:      "queue_depth",
			Help:      "Number of tasks currently queued, not yet started.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carpal",
			Subsystem: name,
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of executed tasks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queueDepth, m.taskDuration)
	}
	return m
}

// timerMetrics is the optional instrumentation an [AlarmClock] exposes
// when constructed with [WithMetrics].
type timerMetrics struct {
	pending prometheus.Gauge
}

func newTimerMetrics(reg prometheus.Registerer, name string) *timerMetrics {
	m := &timerMetrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carpal",
			Subsystem: name,
			Name:      "timers_pending",
			Help:      "Number of timers currently armed and not yet fired or canceled.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.pending)
	}
	return m
}

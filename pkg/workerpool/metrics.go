package workerpool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one pool.
// A nil *Metrics records nothing.
type Metrics struct {
	Succeeded prometheus.Counter
	Failed    prometheus.Counter
	Duration  prometheus.Histogram
	Wait      prometheus.Histogram
	QueueSize prometheus.Gauge
}

// NewMetrics creates the pool collectors labelled with pool=name and
// registers them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"pool": name}

	return &Metrics{
		Succeeded: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "workerpool",
			Name:        "tasks_succeeded_total",
			Help:        "Total number of tasks that completed.",
			ConstLabels: labels,
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "workerpool",
			Name:        "tasks_failed_total",
			Help:        "Total number of tasks that panicked.",
			ConstLabels: labels,
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "workerpool",
			Name:        "task_duration_seconds",
			Help:        "Duration of task execution in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		Wait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "workerpool",
			Name:        "task_wait_seconds",
			Help:        "Time a task spends in the queue before execution in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		QueueSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   "workerpool",
			Name:        "queue_size",
			Help:        "Current number of queued tasks.",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) queued(delta float64) {
	if m != nil {
		m.QueueSize.Add(delta)
	}
}

func (m *Metrics) observeWait(d time.Duration) {
	if m != nil {
		m.Wait.Observe(d.Seconds())
	}
}

func (m *Metrics) succeed(d time.Duration) {
	if m != nil {
		m.Succeeded.Inc()
		m.Duration.Observe(d.Seconds())
	}
}

func (m *Metrics) fail() {
	if m != nil {
		m.Failed.Inc()
	}
}

// Package prom exports engine observability events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arbdash/revalid/swr"
)

// Adapter implements swr.Observer and exports Prometheus counters/gauges.
// Metrics are aggregated across keys: per-key labels would make the
// cardinality depend on the consumer's keyspace.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter[K comparable] struct {
	attempts prometheus.Counter
	results  *prometheus.CounterVec
	slow     prometheus.Counter
	dedups   prometheus.Counter
	active   prometheus.Gauge
	duration prometheus.Histogram
}

// New constructs a Prometheus observer adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New[K comparable](reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter[K] {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter[K]{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "fetch_attempts_total",
			Help:        "Fetch attempts",
			ConstLabels: constLabels,
		}),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "fetch_results_total",
				Help:        "Completed fetches by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		slow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "slow_fetches_total",
			Help:        "Fetches that exceeded the loading timeout",
			ConstLabels: constLabels,
		}),
		dedups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "deduplicated_requests_total",
			Help:        "Requests that joined an in-flight fetch",
			ConstLabels: constLabels,
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "active_keys",
			Help:        "Number of keys with at least one subscriber",
			ConstLabels: constLabels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "fetch_duration_seconds",
			Help:        "Duration of successful fetches",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(a.attempts, a.results, a.slow, a.dedups, a.active, a.duration)
	return a
}

// FetchAttempt increments the attempt counter.
func (a *Adapter[K]) FetchAttempt(K, time.Time) { a.attempts.Inc() }

// FetchSuccess counts the outcome and observes the fetch duration.
func (a *Adapter[K]) FetchSuccess(_ K, elapsed time.Duration, _ time.Time) {
	a.results.WithLabelValues("success").Inc()
	a.duration.Observe(elapsed.Seconds())
}

// FetchError counts the outcome. The attempt number is not exported:
// consecutive-failure streaks are visible through the counter rate.
func (a *Adapter[K]) FetchError(K, error, int, time.Time) {
	a.results.WithLabelValues("error").Inc()
}

// SlowLoading increments the slow-fetch counter.
func (a *Adapter[K]) SlowLoading(K, time.Duration, time.Time) { a.slow.Inc() }

// Dedup increments the deduplicated-request counter.
func (a *Adapter[K]) Dedup(K) { a.dedups.Inc() }

// ActiveKeys updates the active-key gauge.
func (a *Adapter[K]) ActiveKeys(n int) { a.active.Set(float64(n)) }

// Compile-time check: ensure Adapter implements swr.Observer.
var _ swr.Observer[string] = (*Adapter[string])(nil)

// Package metrics exposes Prometheus instruments for the quote pipeline.
// All recorders are nil-receiver safe so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aristath/fundpulse/internal/cache"
)

const namespace = "fundpulse"

// Metrics owns a private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	AdapterRequests  *prometheus.CounterVec
	AdapterLatency   *prometheus.HistogramVec
	Resolutions      *prometheus.CounterVec
	BatchDuration    prometheus.Histogram
	BatchSize        prometheus.Histogram
	BatchAbandoned   prometheus.Counter
	TicksAppended    prometheus.Counter
	TicksPruned      prometheus.Counter
	MutexWaitSeconds *prometheus.HistogramVec
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AdapterRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_requests_total",
			Help:      "Quote source calls by source and outcome.",
		}, []string{"source", "outcome"}),
		AdapterLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_latency_seconds",
			Help:      "Quote source call latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 1.5, 2, 3},
		}, []string{"source"}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolver outcomes by instrument kind and valuation status.",
		}, []string{"kind", "status"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of batch fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Instruments per batch fetch.",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 200},
		}),
		BatchAbandoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_abandoned_total",
			Help:      "Instruments reported unavailable because the batch deadline passed.",
		}),
		TicksAppended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_appended_total",
			Help:      "Tick rows newly inserted (duplicates excluded).",
		}),
		TicksPruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_pruned_total",
			Help:      "Tick rows removed by retention.",
		}),
		MutexWaitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_mutex_wait_seconds",
			Help:      "Time spent waiting for a serialized upstream client.",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 2},
		}, []string{"client"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statser interface {
	Name() string
	Stats() cache.Stats
}

// RegisterCache exports hit/miss/load counters for an in-memory cache.
func (m *Metrics) RegisterCache(c statser) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"cache": c.Name()}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total", Help: "Cache hits.", ConstLabels: labels,
		}, func() float64 { return float64(c.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total", Help: "Cache misses.", ConstLabels: labels,
		}, func() float64 { return float64(c.Stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_loads_total", Help: "Upstream loads triggered by misses.", ConstLabels: labels,
		}, func() float64 { return float64(c.Stats().Loads) }),
	)
}

// ObserveAdapter records one source call.
func (m *Metrics) ObserveAdapter(source string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "unavailable"
	}
	m.AdapterRequests.WithLabelValues(source, outcome).Inc()
	m.AdapterLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveResolution records the final status of one resolve call.
func (m *Metrics) ObserveResolution(kind, status string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(kind, status).Inc()
}

// ObserveBatch records a finished batch.
func (m *Metrics) ObserveBatch(size, abandoned int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(elapsed.Seconds())
	m.BatchAbandoned.Add(float64(abandoned))
}

// ObserveTicks records inserted and pruned tick rows.
func (m *Metrics) ObserveTicks(appended, pruned int64) {
	if m == nil {
		return
	}
	m.TicksAppended.Add(float64(appended))
	m.TicksPruned.Add(float64(pruned))
}

// ObserveMutexWait records time spent queued behind a serialized client.
func (m *Metrics) ObserveMutexWait(client string, waited time.Duration) {
	if m == nil {
		return
	}
	m.MutexWaitSeconds.WithLabelValues(client).Observe(waited.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics instruments object storage operations. It satisfies
// storage.Observer.
type StorageMetrics struct {
	bytes   *prometheus.CounterVec
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewStorageMetrics registers storage metrics on reg.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "bytes_total",
		Help:      "Total bytes transferred by storage operations.",
	}, []string{"op"})
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "ops_total",
		Help:      "Total number of storage operations by result.",
	}, []string{"op", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "op_duration_seconds",
		Help:      "Histogram of storage operation durations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	reg.MustRegister(bytes, ops, latency)

	return &StorageMetrics{bytes: bytes, ops: ops, latency: latency}
}

// Observe records one completed operation.
func (s *StorageMetrics) Observe(op string, n int64, err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.ops.WithLabelValues(op, result).Inc()
	s.latency.WithLabelValues(op).Observe(dur.Seconds())
	if n > 0 {
		s.bytes.WithLabelValues(op).Add(float64(n))
	}
}

package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records Graph API call outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insights",
			Subsystem: "graph",
			Name:      "requests_total",
			Help:      "Graph API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "insights",
			Subsystem: "graph",
			Name:      "request_duration_seconds",
			Help:      "Graph API request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(endpoint Endpoint, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(string(endpoint), outcome).Inc()
	m.duration.WithLabelValues(string(endpoint)).Observe(time.Since(started).Seconds())
}

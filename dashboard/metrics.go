package dashboard

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeReady = "ready"
	outcomeError = "error"
	outcomeStale = "stale"
)

// Metrics counts fetch outcomes. A nil *Metrics records nothing.
type Metrics struct {
	fetches *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "insights",
			Name:      "fetches_total",
			Help:      "Metric fetches by outcome; stale results are discarded.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.fetches)
	return m
}

func (m *Metrics) record(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

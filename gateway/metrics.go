package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the gateway's consume loop. A nil *Metrics is a no-op,
// so tests can run without a registry.
type Metrics struct {
	MessagesReceived   prometheus.Counter
	MessagesProcessed  *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
}

// NewMetrics creates the gateway metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payment",
			Subsystem: "gateway",
			Name:      "messages_received_total",
			Help:      "Total number of operation requests consumed from the broker",
		}),
		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payment",
			Subsystem: "gateway",
			Name:      "messages_processed_total",
			Help:      "Total number of operation requests answered, by outcome",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payment",
			Subsystem: "gateway",
			Name:      "processing_duration_seconds",
			Help:      "Time from delivery to response publish",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.MessagesReceived, m.MessagesProcessed, m.ProcessingDuration)

	return m
}

func (m *Metrics) received() {
	if m == nil {
		return
	}

	m.MessagesReceived.Inc()
}

func (m *Metrics) processed(outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.MessagesProcessed.WithLabelValues(outcome).Inc()
	m.ProcessingDuration.Observe(d.Seconds())
}

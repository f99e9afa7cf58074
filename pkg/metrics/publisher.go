package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PublisherMetrics records outbox drain activity.
type PublisherMetrics struct {
	drainDuration prometheus.Histogram
	published     prometheus.Counter
	failed        prometheus.Counter
}

// NewPublisherMetrics registers the outbox publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	drainDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_drain_duration_seconds",
		Help:    "Duration of outbox drain passes in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events successfully published.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox events that failed to publish.",
	})
	reg.MustRegister(drainDuration, published, failed)
	return &PublisherMetrics{
		drainDuration: drainDuration,
		published:     published,
		failed:        failed,
	}
}

// ObserveDrain records the duration of one drain pass.
func (p *PublisherMetrics) ObserveDrain(elapsed time.Duration) {
	if p == nil || p.drainDuration == nil {
		return
	}
	p.drainDuration.Observe(elapsed.Seconds())
}

// IncPublished increments the published counter.
func (p *PublisherMetrics) IncPublished() {
	if p == nil || p.published == nil {
		return
	}
	p.published.Inc()
}

// IncFailed increments the failure counter.
func (p *PublisherMetrics) IncFailed() {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.Inc()
}

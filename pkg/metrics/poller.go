package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records outcomes of background sync pollers.
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	stale    *prometheus.CounterVec
}

// NewPollerMetrics registers the poller metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poller_duration_seconds",
		Help:    "Duration of poller ticks in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"poller"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_success",
		Help: "Successful poller ticks.",
	}, []string{"poller"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_failure",
		Help: "Failed poller ticks.",
	}, []string{"poller"})
	stale := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_stale_results",
		Help: "Poller results discarded because a newer tick already committed.",
	}, []string{"poller"})
	reg.MustRegister(duration, success, failure, stale)
	return &PollerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		stale:    stale,
	}
}

// ObserveDuration records the duration for the named poller.
func (p *PollerMetrics) ObserveDuration(poller string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(poller)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named poller.
func (p *PollerMetrics) IncSuccess(poller string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(poller)).Inc()
}

// IncFailure increments the failure counter for the named poller.
func (p *PollerMetrics) IncFailure(poller string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(poller)).Inc()
}

// IncStale increments the discarded-result counter for the named poller.
func (p *PollerMetrics) IncStale(poller string) {
	if p == nil || p.stale == nil {
		return
	}
	p.stale.WithLabelValues(normalizeLabel(poller)).Inc()
}

func normalizeLabel(poller string) string {
	if poller == "" {
		return "unknown"
	}
	return poller
}

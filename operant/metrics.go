package operant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics receives controller instrumentation. NopMetrics discards it;
// PrometheusMetrics exports it.
type Metrics interface {
	TrialCompleted(behavior, condition, outcome string, duration time.Duration)
	RewardDelivered()
	PunishmentDelivered()
	SessionActive(active bool)
	FeederFailure(kind string)
}

// NopMetrics discards all instrumentation.
type NopMetrics struct{}

func (NopMetrics) TrialCompleted(string, string, string, time.Duration) {}
func (NopMetrics) RewardDelivered()                                     {}
func (NopMetrics) PunishmentDelivered()                                 {}
func (NopMetrics) SessionActive(bool)                                   {}
func (NopMetrics) FeederFailure(string)                                 {}

// PrometheusMetrics exports controller counters under the "opyrant"
// namespace.
type PrometheusMetrics struct {
	trials        *prometheus.CounterVec
	rewards       prometheus.Counter
	punishments   prometheus.Counter
	trialDuration prometheus.Histogram
	sessionActive prometheus.Gauge
	feederFails   *prometheus.CounterVec
}

// NewPrometheusMetrics registers the opyrant metric set on the given
// registerer. Pass prometheus.DefaultRegisterer for the usual global
// registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opyrant",
			Name:      "trials_total",
			Help:      "Completed trials by behavior, condition, and outcome.",
		}, []string{"behavior", "condition", "outcome"}),
		rewards: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opyrant",
			Name:      "rewards_total",
			Help:      "Rewards delivered.",
		}),
		punishments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "opyrant",
			Name:      "punishments_total",
			Help:      "Punishments delivered.",
		}),
		trialDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "opyrant",
			Name:      "trial_duration_seconds",
			Help:      "Wall-clock length of completed trials.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		sessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "opyrant",
			Name:      "session_active",
			Help:      "1 while a session is running.",
		}),
		feederFails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opyrant",
			Name:      "feeder_failures_total",
			Help:      "Hopper failures by kind.",
		}, []string{"kind"}),
	}
}

func (m *PrometheusMetrics) TrialCompleted(behavior, condition, outcome string, duration time.Duration) {
	m.trials.WithLabelValues(behavior, condition, outcome).Inc()
	m.trialDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RewardDelivered() {
	m.rewards.Inc()
}

func (m *PrometheusMetrics) PunishmentDelivered() {
	m.punishments.Inc()
}

func (m *PrometheusMetrics) SessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
		return
	}
	m.sessionActive.Set(0)
}

func (m *PrometheusMetrics) FeederFailure(kind string) {
	m.feederFails.WithLabelValues(kind).Inc()
}

package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster_consumer",
		Name:      "events_total",
		Help:      "Membership events consumed, labeled by event type.",
	}, []string{"event_type"})

	malformedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "roster_consumer",
		Name:      "events_malformed_total",
		Help:      "Membership events skipped because they could not be decoded.",
	})

	rosterGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster_consumer",
		Name:      "participants",
		Help:      "Participants per activity as last reported by membership events.",
	}, []string{"activity"})

	lagGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "roster_consumer",
		Name:      "last_event_lag_seconds",
		Help:      "Delay between a membership change and its consumption.",
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, malformedCounter, rosterGauge, lagGauge)
}

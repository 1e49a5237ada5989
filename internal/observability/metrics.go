package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for roster mutations.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeRejected     = "rejected"
	OutcomeInvalid      = "invalid"
	OutcomeError        = "error"
	OperationSignup     = "signup"
	OperationUnregister = "unregister"
)

var (
	participantsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "catalog",
		Name:      "participants",
		Help:      "Current number of participants per activity.",
	}, []string{"activity"})

	membershipCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "api",
		Name:      "membership_requests_total",
		Help:      "Signup and unregister requests, labeled by operation and outcome.",
	}, []string{"operation", "outcome"})
)

func init() {
	prometheus.MustRegister(participantsGauge, membershipCounter)
}

// RecordParticipants updates the roster size gauge for an activity.
func RecordParticipants(activity string, count int) {
	participantsGauge.WithLabelValues(activity).Set(float64(count))
}

// RecordMembership counts a signup or unregister request by outcome.
func RecordMembership(operation, outcome string) {
	membershipCounter.WithLabelValues(operation, outcome).Inc()
}

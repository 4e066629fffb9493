package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// StoreWrites counts collection document puts by outcome (ok|put_error|verify_mismatch).
	StoreWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Subsystem: "store", Name: "writes_total", Help: "Collection document write attempts by outcome."},
		[]string{"collection", "outcome"},
	)
	StoreConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Subsystem: "store", Name: "version_conflicts_total", Help: "Writes rejected because the stored version moved."},
		[]string{"collection"},
	)
	StoreReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Subsystem: "store", Name: "read_failures_total", Help: "Collection document reads that failed."},
		[]string{"collection"},
	)
	MutationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Subsystem: "store", Name: "mutation_retries_total", Help: "Read-modify-write cycles retried by operation."},
		[]string{"collection", "op"},
	)

	Inquiries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lexsite", Name: "inquiries_total", Help: "Contact and consultation submissions by delivery outcome."},
		[]string{"kind", "outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(StoreWrites)
	reg.MustRegister(StoreConflicts)
	reg.MustRegister(StoreReadFailures)
	reg.MustRegister(MutationRetries)
	reg.MustRegister(Inquiries)
}

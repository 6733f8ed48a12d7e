package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// consumeTotal counts ledger consumptions by source and outcome
	// (ok, denied, error, compensated, partial).
	consumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_consume_total",
			Help: "Listing credit consumptions by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	// eligibilityTotal counts eligibility decisions by source or deny reason.
	eligibilityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_eligibility_total",
			Help: "Eligibility checks by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(consumeTotal, eligibilityTotal)
}

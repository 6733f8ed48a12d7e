package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheRequests counts Get calls by outcome: hit, miss, coalesced, error.
	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_cache_requests_total",
			Help: "Read-through cache lookups by result.",
		},
		[]string{"result"},
	)

	// cacheInvalidations counts removed keys by invalidation kind (key, pattern).
	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_cache_invalidations_total",
			Help: "Keys invalidated in the read-through cache.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(cacheRequests, cacheInvalidations)
}

package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit  = "hit"
	resultMiss = "miss"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcipher_player_cache_lookups_total",
			Help: "Player cache lookups by result.",
		},
		[]string{"result"},
	)

	fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ytcipher_player_fetch_duration_seconds",
			Help:    "Duration of upstream player script fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)

	fetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytcipher_player_fetch_errors_total",
			Help: "Total number of failed player script fetches.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(fetchDuration)
	prometheus.MustRegister(fetchErrors)
}

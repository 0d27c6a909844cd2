// Package metrics holds the counters of an ingestion run. The CLI is a batch
// job, so instead of serving /metrics the registry can be dumped into a
// node-exporter textfile at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "beerledger"

const (
	SourceCache   = "cache"
	SourceNetwork = "network"

	EntityBeer    = "beer"
	EntityCheckin = "checkin"
	EntityBadge   = "badge"
)

var (
	Registry = prometheus.NewRegistry()

	APIRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "API calls answered, by source (cache or network).",
		},
		[]string{"source"},
	)

	Ingested = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_total",
			Help:      "Entities handed to the store during ingestion, by entity.",
		},
		[]string{"entity"},
	)

	LastSuccess = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync.",
		},
	)
)

func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

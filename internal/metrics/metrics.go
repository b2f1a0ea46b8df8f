// Package metrics exposes Prometheus instrumentation for the fetch engine.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests issued by workers, by outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashfetch_requests_total",
			Help: "Total HTTP requests issued by fetch workers",
		},
		[]string{"outcome"},
	)

	// RetriesTotal counts retry attempts, by the retryable reason.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashfetch_retries_total",
			Help: "Total retry attempts by reason",
		},
		[]string{"reason"},
	)

	// CardsFetched counts SummaryCards successfully decoded.
	CardsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashfetch_cards_fetched_total",
			Help: "Total SummaryCards successfully decoded",
		},
	)

	// IndicatorsDecoded counts individual Indicator records decoded.
	IndicatorsDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashfetch_indicators_decoded_total",
			Help: "Total Indicator records decoded across all cards",
		},
	)

	// QueueDepth reports the current work queue length.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashfetch_queue_depth",
			Help: "Current number of URLs waiting in the work queue",
		},
	)

	// LimiterWaitSeconds histograms time spent blocked in the rate limiter.
	LimiterWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashfetch_limiter_wait_seconds",
			Help:    "Time spent blocked acquiring a rate-limit token",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	// EnrichmentHits counts cards successfully stamped with school/year metadata.
	EnrichmentHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashfetch_enrichment_hits_total",
			Help: "Total cards stamped with metadata during enrichment",
		},
	)

	// EnrichmentMisses counts cards whose (cds, yearId) had no metadata match.
	EnrichmentMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashfetch_enrichment_misses_total",
			Help: "Total cards with no metadata match during enrichment",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RetriesTotal,
		CardsFetched,
		IndicatorsDecoded,
		QueueDepth,
		LimiterWaitSeconds,
		EnrichmentHits,
		EnrichmentMisses,
	)
}

// StartServer starts the metrics HTTP server on the given address.
func StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		log.Printf("[metrics] listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

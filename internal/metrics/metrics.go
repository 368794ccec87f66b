package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimpipe_events_ingested_total",
			Help: "Total events accepted at the ingestion boundary",
		},
	)

	IngestRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimpipe_ingest_rejected_total",
			Help: "Total ingestion requests rejected as malformed",
		},
	)

	// Worker metrics
	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimpipe_events_processed_total",
			Help: "Total events persisted by the worker",
		},
	)

	MalformedPayloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimpipe_malformed_payloads_total",
			Help: "Total queue items dropped as undecodable",
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimpipe_persist_failures_total",
			Help: "Total events that failed to persist",
		},
	)

	ClaimsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimpipe_claims_extracted_total",
			Help: "Total claims extracted",
		},
		[]string{"type"}, // "commitment" or "contradiction"
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claimpipe_processing_duration_seconds",
			Help:    "Per-event extract+persist duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Engine metrics
	EngineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimpipe_engine_requests_total",
			Help: "Total evaluation engine calls",
		},
		[]string{"outcome"}, // "ok" or "error"
	)
)

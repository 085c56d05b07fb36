package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "frames_ingested_total",
		Help:      "Total number of frames received from the source",
	})

	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "frames_processed_total",
		Help:      "Total number of frames run through face recognition",
	})

	FacesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "faces_detected_total",
		Help:      "Total number of faces localized in processed frames",
	})

	FacesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "faces_matched_total",
		Help:      "Total number of faces matched to a known identity",
	})

	EnrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "enrollments_total",
		Help:      "Total number of identities auto-enrolled",
	})

	EncodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ada",
		Name:      "encode_failures_total",
		Help:      "Total number of frames dropped due to encoder errors",
	})

	KnownIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ada",
		Name:      "known_identities",
		Help:      "Number of identities currently in the in-memory index",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ada",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ada",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ada",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)

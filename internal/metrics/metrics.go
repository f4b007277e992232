package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ImagesProcessed counts uploads that reached the orchestrator, by
	// endpoint and outcome.
	ImagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixelguard",
			Name:      "images_processed_total",
			Help:      "Number of images processed, by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	// QRAssessments counts QR verdicts by risk level.
	QRAssessments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixelguard",
			Name:      "qr_assessments_total",
			Help:      "Number of QR code assessments, by risk level.",
		},
		[]string{"risk_level"},
	)

	// DetectionTaskFailures counts orchestrator task failures by task name.
	DetectionTaskFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixelguard",
			Name:      "detection_task_failures_total",
			Help:      "Number of failed detection tasks, by task.",
		},
		[]string{"task"},
	)

	// ResolverHops tracks redirect chain lengths seen by the URL resolver.
	ResolverHops = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pixelguard",
			Name:      "resolver_redirect_hops",
			Help:      "Redirect chain length per resolved URL.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		},
	)

	// RequestDuration tracks end-to-end handler latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pixelguard",
			Name:      "request_duration_seconds",
			Help:      "Handler latency in seconds, by endpoint.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

var registerOnce sync.Once

// Register installs all collectors in the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ImagesProcessed,
			QRAssessments,
			DetectionTaskFailures,
			ResolverHops,
			RequestDuration,
		)
	})
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics. HTTP traffic is covered separately by middleware.Metrics;
// these track what happens inside the notes pipeline.
var (
	uploadFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_upload_files_total",
			Help: "Uploaded files by outcome (success, error).",
		},
		[]string{"status"},
	)

	extractedChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notes_extracted_chars",
			Help:    "Characters of text extracted per successfully uploaded file.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256..4M
		},
	)

	modelCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_model_calls_total",
			Help: "Model calls by mode and outcome (ok, rate_limited, error).",
		},
		[]string{"mode", "outcome"},
	)

	modelLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notes_model_call_duration_seconds",
			Help:    "Duration of model calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"mode"},
	)

	contextLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_context_cache_lookups_total",
			Help: "Context cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	historyWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_history_writes_total",
			Help: "Background chat history writes by outcome (ok, error).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(uploadFiles, extractedChars, modelCalls, modelLatency, contextLookups, historyWrites)
}

// ObserveUpload records the outcome of one uploaded file. chars is ignored
// for failures.
func ObserveUpload(ok bool, chars int) {
	if !ok {
		uploadFiles.WithLabelValues("error").Inc()
		return
	}
	uploadFiles.WithLabelValues("success").Inc()
	extractedChars.Observe(float64(chars))
}

// ObserveModelCall records one model round trip.
func ObserveModelCall(mode, outcome string, took time.Duration) {
	modelCalls.WithLabelValues(mode, outcome).Inc()
	modelLatency.WithLabelValues(mode).Observe(took.Seconds())
}

// ObserveCacheLookup records a context cache lookup result.
func ObserveCacheLookup(result string) {
	contextLookups.WithLabelValues(result).Inc()
}

// ObserveHistoryWrite records a background history write.
func ObserveHistoryWrite(ok bool) {
	if ok {
		historyWrites.WithLabelValues("ok").Inc()
		return
	}
	historyWrites.WithLabelValues("error").Inc()
}

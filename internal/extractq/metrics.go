package extractq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	reasonInterim   = "interim"
	reasonEmpty     = "empty_text"
	reasonDuplicate = "duplicate"
)

var (
	enqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lifetrace_transcript",
		Subsystem: "extractq",
		Name:      "segments_enqueued_total",
		Help:      "Segments accepted into the extraction queue.",
	})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifetrace_transcript",
		Subsystem: "extractq",
		Name:      "segments_rejected_total",
		Help:      "Enqueue no-ops by reason (interim, empty_text, duplicate).",
	}, []string{"reason"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lifetrace_transcript",
		Subsystem: "extractq",
		Name:      "queue_depth",
		Help:      "Segments waiting in the extraction queue.",
	})

	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lifetrace_transcript",
		Subsystem: "extractq",
		Name:      "segment_process_seconds",
		Help:      "Wall time spent processing one segment (excluding debounce).",
		Buckets:   prometheus.DefBuckets,
	})
)

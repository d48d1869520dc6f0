package transcript

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entitiesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifetrace_transcript",
		Name:      "entities_extracted_total",
		Help:      "Entities emitted, by kind.",
	}, []string{"kind"})

	extractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifetrace_transcript",
		Name:      "remote_extraction_failures_total",
		Help:      "Remote extraction calls that failed after retries, by kind.",
	}, []string{"kind"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifetrace_transcript",
		Name:      "fallback_extractions_total",
		Help:      "Segments parsed by the local marker fallback, by kind.",
	}, []string{"kind"})

	pendingEntities = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lifetrace_transcript",
		Name:      "pending_entities",
		Help:      "Entities buffered because no consumer was registered yet.",
	})
)

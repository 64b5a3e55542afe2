package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DiagnosisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biomed_diagnosis_duration_seconds",
			Help:    "Diagnostic session duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	DiagnosisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_diagnosis_total",
			Help: "Total diagnostic sessions by outcome",
		},
		[]string{"outcome"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_stage_failures_total",
			Help: "Total pipeline stage failures",
		},
		[]string{"stage"},
	)

	KnowledgeMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_knowledge_misses_total",
			Help: "Sessions that ran without an equipment knowledge document",
		},
		[]string{"equipment_model"},
	)

	FaultMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_fault_matches_total",
			Help: "Selected fault hypotheses by equipment model and fault",
		},
		[]string{"equipment_model", "fault_id"},
	)

	EvidenceResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "biomed_evidence_results_count",
			Help:    "Number of evidence snippets retrieved per session",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biomed_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "biomed_documents_processed_total",
			Help: "Total service manuals ingested",
		},
	)
)

func Init() {
	prometheus.MustRegister(DiagnosisDuration)
	prometheus.MustRegister(DiagnosisTotal)
	prometheus.MustRegister(StageFailures)
	prometheus.MustRegister(KnowledgeMisses)
	prometheus.MustRegister(FaultMatches)
	prometheus.MustRegister(EvidenceResults)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

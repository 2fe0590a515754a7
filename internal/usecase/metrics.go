package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// tracer is shared by every verification stage
var tracer = otel.Tracer("allergyaware/usecase")

var (
	// searchFailures counts search provider failures by discovery method
	searchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allergyaware_search_failures_total",
		Help: "Search provider failures by discovery method",
	}, []string{"method"})

	// candidateOutcomes counts per-candidate pipeline outcomes
	candidateOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allergyaware_candidate_outcomes_total",
		Help: "Candidate URL outcomes by result (fetch_failed, no_ingredients, rejected, accepted)",
	}, []string{"result"})

	// extractionMethods counts accepted sources by extraction method
	extractionMethods = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allergyaware_extraction_method_total",
		Help: "Accepted sources by extraction method",
	}, []string{"method"})

	// validatorVerdicts counts extraction validator decisions
	validatorVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allergyaware_validator_verdicts_total",
		Help: "Extraction validator verdicts",
	}, []string{"verdict"})

	// phaseOutcomes counts terminal escalation states by phase reached
	phaseOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allergyaware_phase_outcomes_total",
		Help: "Verification outcomes by final state and phase reached",
	}, []string{"state", "phase"})

	// verificationDuration tracks end-to-end verification latency
	verificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "allergyaware_verification_duration_seconds",
		Help:    "End-to-end verification duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~64s
	})
)

// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "radioaudit"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Audit run metrics
	AuditRunsTotal    prometheus.Counter
	AuditRunsComplete prometheus.Counter
	AuditRunsFailed   prometheus.Counter
	AuditRunsDegraded prometheus.Counter
	AuditRunDuration  prometheus.Histogram

	// Category scoring metrics
	CategoriesScored  prometheus.Counter
	CategoriesFailed  prometheus.Counter
	CategoryScoreTime prometheus.Histogram

	// AI request metrics
	AIRequestsTotal  *prometheus.CounterVec // labels: kind, outcome
	AIRequestLatency *prometheus.HistogramVec

	// Trigger metrics
	TriggerRunsTotal prometheus.Counter
	TriggerTimeouts  prometheus.Counter
	TemplatesSkipped prometheus.Counter

	// Generation pipeline metrics
	TemplatesGenerated prometheus.Counter
	TokenBudgetRejects prometheus.Counter

	// Event publish metrics
	EventPublishTotal  *prometheus.CounterVec // labels: topic
	EventPublishErrors *prometheus.CounterVec
}

// Default is the global metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AuditRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_total",
			Help:      "Total number of audit orchestrator runs started",
		}),
		AuditRunsComplete: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_complete",
			Help:      "Audit runs that reached the complete state",
		}),
		AuditRunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_failed",
			Help:      "Audit runs that reached the failed state",
		}),
		AuditRunsDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_degraded",
			Help:      "Completed runs with category failures or an omitted narrative",
		}),
		AuditRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_run_duration_seconds",
			Help:      "Wall time of an orchestrator run",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		CategoriesScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_scored_total",
			Help:      "Categories scored successfully",
		}),
		CategoriesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_failed_total",
			Help:      "Categories that failed to score",
		}),
		CategoryScoreTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "category_score_seconds",
			Help:      "Latency of a single category-scoring call",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		AIRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "AI analysis requests by kind and outcome",
		}, []string{"kind", "outcome"}),
		AIRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_seconds",
			Help:      "Latency of AI analysis requests",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"kind"}),
		TriggerRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_runs_total",
			Help:      "Post-transcription audit trigger invocations",
		}),
		TriggerTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_timeouts_total",
			Help:      "Trigger invocations abandoned at the deadline",
		}),
		TemplatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_templates_skipped_total",
			Help:      "Selected templates skipped because missing or inactive",
		}),
		TemplatesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "templates_generated_total",
			Help:      "Rubric templates produced by the generation pipeline",
		}),
		TokenBudgetRejects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_budget_rejects_total",
			Help:      "Generation requests rejected for exceeding the token budget",
		}),
		EventPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Audit events published by topic",
		}, []string{"topic"}),
		EventPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Audit event publish failures by topic",
		}, []string{"topic"}),
	}
}

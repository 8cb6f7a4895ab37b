package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReportsAccepted     prometheus.Counter
	ReportsFlagged      prometheus.Counter
	ReportsRejected     *prometheus.CounterVec
	LedgerAppends       prometheus.Counter
	ChainVerifications  *prometheus.CounterVec
	AggregationRuns     *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
	SignalsPublished    prometheus.Counter
	SignalPublishErrors prometheus.Counter
}

// New creates all metrics on the default Prometheus registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "biohive_reports_accepted_total",
			Help: "Total number of symptom reports accepted",
		}),
		ReportsFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "biohive_reports_flagged_total",
			Help: "Total number of accepted reports flagged for manual review",
		}),
		ReportsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biohive_reports_rejected_total",
			Help: "Total number of hard-rejected report submissions by reason",
		}, []string{"reason"}),
		LedgerAppends: factory.NewCounter(prometheus.CounterOpts{
			Name: "biohive_ledger_appends_total",
			Help: "Total number of entries appended to the audit chain",
		}),
		ChainVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biohive_chain_verifications_total",
			Help: "Total number of chain verifications by outcome",
		}, []string{"outcome"}),
		AggregationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biohive_aggregation_runs_total",
			Help: "Total number of daily aggregation runs by outcome",
		}, []string{"outcome"}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biohive_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		SignalsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "biohive_signals_published_total",
			Help: "Total number of aggregated signals published to the feed",
		}),
		SignalPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "biohive_signal_publish_errors_total",
			Help: "Total number of failed signal feed publishes",
		}),
	}
}

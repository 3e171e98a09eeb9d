package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	conversionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetql_conversions_total",
			Help: "Total number of completed spreadsheet-to-store conversions.",
		},
	)
	conversionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetql_conversion_failures_total",
			Help: "Total number of failed conversions by phase.",
		},
		[]string{"phase"},
	)
	convertedTablesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetql_converted_tables_total",
			Help: "Total number of tables materialized from source sheets.",
		},
	)
	convertedRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetql_converted_rows_total",
			Help: "Total number of rows written into relational stores.",
		},
	)
	conversionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheetql_conversion_duration_seconds",
			Help:    "Conversion latency from source parse to metadata write.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	generateRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetql_generate_requests_total",
			Help: "Total number of natural-language query synthesis requests.",
		},
	)
	generateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetql_generate_rejections_total",
			Help: "Total number of synthesis results rejected before execution.",
		},
		[]string{"reason"},
	)
	modelCallDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sheetql_model_call_duration_seconds",
			Help:    "Latency of generative model calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(
		conversionsTotal,
		conversionFailuresTotal,
		convertedTablesTotal,
		convertedRowsTotal,
		conversionDurationSeconds,
		generateRequestsTotal,
		generateRejectionsTotal,
		modelCallDurationSeconds,
	)
}

func ObserveConversion(tables int, rows int64, elapsed time.Duration) {
	conversionsTotal.Inc()
	if tables > 0 {
		convertedTablesTotal.Add(float64(tables))
	}
	if rows > 0 {
		convertedRowsTotal.Add(float64(rows))
	}
	conversionDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveConversionFailure(phase string) {
	conversionFailuresTotal.WithLabelValues(phase).Inc()
}

func ObserveGenerate() {
	generateRequestsTotal.Inc()
}

func ObserveGenerateRejection(reason string) {
	generateRejectionsTotal.WithLabelValues(reason).Inc()
}

func ObserveModelCall(elapsed time.Duration) {
	modelCallDurationSeconds.Observe(elapsed.Seconds())
}

package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// functionsAnalyzed counts analysed functions by report status.
	// Labels: "ok", "partial", "not_implemented", "ineligible", "error"
	functionsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absint_functions_analyzed_total",
		Help: "Functions analysed, by report status",
	}, []string{"status"})

	// statementErrors counts statements the interpreter could not evaluate.
	// Labels: "not_implemented", "interpreter", "invalid_argument", "index_out_of_range", "unknown"
	statementErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absint_statement_errors_total",
		Help: "Statements that failed to interpret, by error kind",
	}, []string{"kind"})

	functionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "absint_function_duration_seconds",
		Help:    "Time spent analysing one function, cache hits excluded",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absint_cache_lookups_total",
		Help: "Report cache lookups by result",
	}, []string{"result"})
)

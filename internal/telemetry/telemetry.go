// Package telemetry holds the Prometheus metrics exported by gnodesk.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// gnodesk_decode_records_total
	//
	// counter of records seen by the page decoder
	//
	// Has the following labels:
	// * kind - the record kind (pool, token, ticket, ...)
	// * outcome - decoded or skipped
	DecodeRecordsMetricName = "gnodesk_decode_records_total"

	// gnodesk_compositions_total
	//
	// counter of composed transactions
	//
	// Has the following labels:
	// * op - the operation
	// * shape - call or run
	CompositionsMetricName = "gnodesk_compositions_total"

	// gnodesk_composition_rejected_total
	//
	// counter of operations rejected before submission
	//
	// Has the following labels:
	// * op - the operation
	CompositionRejectedMetricName = "gnodesk_composition_rejected_total"

	// gnodesk_submissions_total
	//
	// counter of broadcast outcomes
	//
	// Has the following labels:
	// * op - the operation
	// * outcome - succeeded, rejected or transport
	SubmissionsMetricName = "gnodesk_submissions_total"

	// gnodesk_query_errors_total
	//
	// counter of failed read-only queries
	//
	// Has the following labels:
	// * expr - the evaluated expression name
	// * class - eval or transport
	QueryErrorsMetricName = "gnodesk_query_errors_total"

	decodeRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: DecodeRecordsMetricName,
			Help: "Records seen by the page decoder",
		},
		[]string{"kind", "outcome"},
	)

	compositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: CompositionsMetricName,
			Help: "Composed transactions by shape",
		},
		[]string{"op", "shape"},
	)

	compositionRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: CompositionRejectedMetricName,
			Help: "Operations rejected before submission",
		},
		[]string{"op"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: SubmissionsMetricName,
			Help: "Broadcast outcomes",
		},
		[]string{"op", "outcome"},
	)

	queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: QueryErrorsMetricName,
			Help: "Failed read-only queries",
		},
		[]string{"expr", "class"},
	)
)

func init() {
	prometheus.MustRegister(decodeRecords)
	prometheus.MustRegister(compositions)
	prometheus.MustRegister(compositionRejected)
	prometheus.MustRegister(submissions)
	prometheus.MustRegister(queryErrors)
}

const (
	OutcomeDecoded   = "decoded"
	OutcomeSkipped   = "skipped"
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
)

// ObserveDecode records the result of decoding one page.
func ObserveDecode(kind string, decoded, skipped int) {
	decodeRecords.WithLabelValues(kind, OutcomeDecoded).Add(float64(decoded))
	decodeRecords.WithLabelValues(kind, OutcomeSkipped).Add(float64(skipped))
}

func ObserveComposition(op, shape string) {
	compositions.WithLabelValues(op, shape).Inc()
}

func ObserveCompositionRejected(op string) {
	compositionRejected.WithLabelValues(op).Inc()
}

func ObserveSubmission(op, outcome string) {
	submissions.WithLabelValues(op, outcome).Inc()
}

func ObserveQueryError(expr, class string) {
	queryErrors.WithLabelValues(expr, class).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

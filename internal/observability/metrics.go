package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bidder_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// bid evaluations started
	BidEvaluationCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_evaluations_total",
			Help: "Total bid evaluations started",
		},
	)

	// won auctions
	BidWinCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_wins_total",
			Help: "Total auctions won",
		},
	)

	// number of no-bid outcomes, labelled by reason
	NoBidCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_nobid_total",
			Help: "Total no-bid outcomes",
		},
		[]string{"reason"},
	)

	// end-to-end evaluation latency
	EvaluationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bidder_evaluation_duration_seconds",
			Help:    "Histogram of auction evaluation latencies",
			Buckets: prometheus.DefBuckets,
		},
	)

	// spend tracked per campaign
	SpendTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bidder_spend_total",
			Help: "Total spend recorded",
		},
		[]string{"campaign"},
	)

	// ledger conditional updates that lost the budget race
	LedgerConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_ledger_conflicts_total",
			Help: "Total conditional spend updates rejected by the budget condition",
		},
	)

	// ledger transport/storage failures
	LedgerErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_ledger_errors_total",
			Help: "Total ledger transport or storage errors",
		},
	)

	// smoothing reservation attempts per campaign
	SmoothingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_smoothing_requests_total",
			Help: "Total smoothing reservation attempts per campaign",
		},
		[]string{"campaign"},
	)

	// smoothing denials per campaign
	SmoothingDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bidder_smoothing_denials_total",
			Help: "Total smoothing reservations denied per campaign",
		},
		[]string{"campaign"},
	)

	// refunds that could not be delivered to the smoothing backend
	SmoothingRefundFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_smoothing_refund_failures_total",
			Help: "Total smoothing refunds that failed to reach the backend",
		},
	)

	// evaluations rejected because the worker pool was saturated
	PoolRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bidder_pool_rejections_total",
			Help: "Total evaluations rejected by a saturated worker pool",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		BidEvaluationCount,
		BidWinCount,
		NoBidCount,
		EvaluationLatency,
		SpendTotal,
		LedgerConflicts,
		LedgerErrors,
		SmoothingRequests,
		SmoothingDenials,
		SmoothingRefundFailures,
		PoolRejections,
	)
}

package observability

import (
	"strconv"
	"time"
)

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Auction metrics
	IncrementBidEvaluations()
	IncrementBidWins()
	IncrementNoBids(reason string)
	RecordEvaluationLatency(duration time.Duration)

	// Ledger metrics
	SetSpendTotal(campaignID int64, amount float64)
	IncrementLedgerConflicts()
	IncrementLedgerErrors()

	// Smoothing metrics
	IncrementSmoothingRequests(campaignID int64)
	IncrementSmoothingDenials(campaignID int64)
	IncrementSmoothingRefundFailures()

	// Worker pool metrics
	IncrementPoolRejections()
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func campaignLabel(campaignID int64) string {
	return strconv.FormatInt(campaignID, 10)
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementBidEvaluations() {
	BidEvaluationCount.Inc()
}

func (r *PrometheusRegistry) IncrementBidWins() {
	BidWinCount.Inc()
}

func (r *PrometheusRegistry) IncrementNoBids(reason string) {
	NoBidCount.WithLabelValues(reason).Inc()
}

func (r *PrometheusRegistry) RecordEvaluationLatency(duration time.Duration) {
	EvaluationLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) SetSpendTotal(campaignID int64, amount float64) {
	SpendTotal.WithLabelValues(campaignLabel(campaignID)).Set(amount)
}

func (r *PrometheusRegistry) IncrementLedgerConflicts() {
	LedgerConflicts.Inc()
}

func (r *PrometheusRegistry) IncrementLedgerErrors() {
	LedgerErrors.Inc()
}

func (r *PrometheusRegistry) IncrementSmoothingRequests(campaignID int64) {
	SmoothingRequests.WithLabelValues(campaignLabel(campaignID)).Inc()
}

func (r *PrometheusRegistry) IncrementSmoothingDenials(campaignID int64) {
	SmoothingDenials.WithLabelValues(campaignLabel(campaignID)).Inc()
}

func (r *PrometheusRegistry) IncrementSmoothingRefundFailures() {
	SmoothingRefundFailures.Inc()
}

func (r *PrometheusRegistry) IncrementPoolRejections() {
	PoolRejections.Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementBidEvaluations()                                             {}
func (r *NoOpRegistry) IncrementBidWins()                                                    {}
func (r *NoOpRegistry) IncrementNoBids(reason string)                                        {}
func (r *NoOpRegistry) RecordEvaluationLatency(duration time.Duration)                       {}
func (r *NoOpRegistry) SetSpendTotal(campaignID int64, amount float64)                       {}
func (r *NoOpRegistry) IncrementLedgerConflicts()                                            {}
func (r *NoOpRegistry) IncrementLedgerErrors()                                               {}
func (r *NoOpRegistry) IncrementSmoothingRequests(campaignID int64)                          {}
func (r *NoOpRegistry) IncrementSmoothingDenials(campaignID int64)                           {}
func (r *NoOpRegistry) IncrementSmoothingRefundFailures()                                    {}
func (r *NoOpRegistry) IncrementPoolRejections()                                             {}

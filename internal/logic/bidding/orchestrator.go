package bidding

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/models"
	"github.com/patrickwarner/openbidder/internal/observability"
)

// Orchestrator wraps one auction evaluation with a deadline. The evaluation
// runs on the worker pool; the caller blocks at most for the timeout and
// every failure mode (timeout, caller cancellation, pool saturation, panic)
// collapses to an absent decision. Cancellation after the deadline is
// advisory: an in-flight evaluation may still commit spend, and nothing
// reverses the ledger in that case.
type Orchestrator struct {
	engine         *Engine
	pool           *Pool
	defaultTimeout time.Duration
	metrics        observability.MetricsRegistry
	logger         *zap.Logger
}

// NewOrchestrator constructs an orchestrator with the given default timeout.
func NewOrchestrator(engine *Engine, pool *Pool, defaultTimeout time.Duration,
	metrics observability.MetricsRegistry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		engine:         engine,
		pool:           pool,
		defaultTimeout: defaultTimeout,
		metrics:        metrics,
		logger:         logger,
	}
}

// EvaluateWithDefaultTimeout evaluates with the configured default timeout.
func (o *Orchestrator) EvaluateWithDefaultTimeout(ctx context.Context, bidID int64, keywords []string) (models.BidDecision, bool) {
	return o.EvaluateWithTimeout(ctx, bidID, keywords, o.defaultTimeout)
}

// EvaluateWithTimeout submits the evaluation to the pool and waits up to
// timeout. It returns (decision, true) when the evaluation finished in time,
// and (zero, false) on timeout, caller cancellation, pool saturation or an
// evaluation panic. It never propagates a panic or error to the caller.
func (o *Orchestrator) EvaluateWithTimeout(ctx context.Context, bidID int64, keywords []string, timeout time.Duration) (models.BidDecision, bool) {
	start := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan models.BidDecision, 1)
	err := o.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("bid evaluation panicked",
					zap.Int64("bid_id", bidID), zap.Any("panic", r))
				results <- models.NoBid()
			}
		}()
		results <- o.engine.Evaluate(evalCtx, bidID, keywords)
	})
	if err != nil {
		o.logger.Warn("bid evaluation rejected", zap.Int64("bid_id", bidID), zap.Error(err))
		o.metrics.IncrementPoolRejections()
		return models.BidDecision{}, false
	}

	select {
	case decision := <-results:
		o.metrics.RecordEvaluationLatency(time.Since(start))
		return decision, true
	case <-evalCtx.Done():
		o.metrics.RecordEvaluationLatency(time.Since(start))
		if ctx.Err() != nil {
			o.logger.Warn("bid evaluation cancelled by caller", zap.Int64("bid_id", bidID))
		} else {
			o.logger.Debug("bid evaluation timed out",
				zap.Int64("bid_id", bidID), zap.Duration("timeout", timeout))
		}
		return models.BidDecision{}, false
	}
}

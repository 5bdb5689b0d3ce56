package smoothing

import (
	"sync"

	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/observability"
)

// InMemoryService manages one token bucket per campaign, created lazily on
// first access. Suited to single-instance deployments; state is lost on
// restart and not shared across processes.
type InMemoryService struct {
	buckets map[int64]*TokenBucket
	mu      sync.RWMutex // Protects the buckets map
	cfg     Config
	metrics observability.MetricsRegistry
}

// NewInMemoryService creates an in-process smoothing service.
func NewInMemoryService(cfg Config, metrics observability.MetricsRegistry) *InMemoryService {
	return &InMemoryService{
		buckets: make(map[int64]*TokenBucket),
		cfg:     cfg,
		metrics: metrics,
	}
}

// bucketFor returns the campaign's bucket, creating it on first reference.
// Creation is idempotent under concurrent first access.
func (s *InMemoryService) bucketFor(campaignID int64) *TokenBucket {
	s.mu.RLock()
	bucket, exists := s.buckets[campaignID]
	s.mu.RUnlock()
	if exists {
		return bucket
	}

	// Double-checked locking pattern to avoid race conditions
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, exists = s.buckets[campaignID]
	if !exists {
		zap.L().Debug("creating token bucket", zap.Int64("campaign_id", campaignID))
		bucket = NewTokenBucket(s.cfg.Capacity, s.cfg.RefillRate)
		s.buckets[campaignID] = bucket
	}
	return bucket
}

// TryConsume reserves amount from the campaign's bucket.
func (s *InMemoryService) TryConsume(campaignID int64, amount float64) bool {
	s.metrics.IncrementSmoothingRequests(campaignID)
	ok := s.bucketFor(campaignID).TryConsume(amount)
	if !ok {
		s.metrics.IncrementSmoothingDenials(campaignID)
	}
	return ok
}

// Refund returns amount to the campaign's bucket, capped at capacity.
func (s *InMemoryService) Refund(campaignID int64, amount float64) {
	s.bucketFor(campaignID).Refund(amount)
}

// Available reports the campaign's current token count.
func (s *InMemoryService) Available(campaignID int64) float64 {
	return s.bucketFor(campaignID).Available()
}

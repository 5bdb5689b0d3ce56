package smoothing

import (
	"fmt"

	"github.com/patrickwarner/openbidder/internal/db"
	"github.com/patrickwarner/openbidder/internal/observability"
)

// Backend selection values for Config.Backend.
const (
	// BackendMemory keeps buckets in process memory. Exact arithmetic,
	// no network hop; correct for single-instance deployments only.
	BackendMemory = "memory"
	// BackendRedis keeps bucket state in Redis and mutates it with atomic
	// Lua scripts, so multiple service instances share one rate state.
	BackendRedis = "redis"
)

// Service answers whether a campaign may spend an amount right now without
// exceeding its smoothing rate, and lets a prior "yes" be walked back.
//
// Implementations must make TryConsume atomic per campaign: the
// read-refill-compare-write sequence cannot interleave with another caller.
type Service interface {
	// TryConsume reserves amount from the campaign's bucket. False means the
	// reservation was denied (or, for distributed backends, could not be
	// guaranteed).
	TryConsume(campaignID int64, amount float64) bool

	// Refund returns a previously reserved amount to the bucket, capped at
	// capacity. Best-effort for distributed backends.
	Refund(campaignID int64, amount float64)

	// Available reports the campaign's current token count, for diagnostics.
	Available(campaignID int64) float64
}

// Config holds the bucket parameters shared by all backends.
type Config struct {
	Capacity   float64 // Bucket capacity (burst allowance in currency units)
	RefillRate float64 // Tokens added per second
	Backend    string  // BackendMemory or BackendRedis
}

// New constructs the Service selected by cfg.Backend. The Redis store is only
// required for BackendRedis.
func New(cfg Config, store *db.RedisStore, metrics observability.MetricsRegistry) (Service, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewInMemoryService(cfg, metrics), nil
	case BackendRedis:
		if store == nil || store.Client == nil {
			return nil, fmt.Errorf("smoothing backend %q requires a redis store", cfg.Backend)
		}
		return NewRedisService(cfg, store, metrics), nil
	default:
		return nil, fmt.Errorf("unknown smoothing backend %q", cfg.Backend)
	}
}

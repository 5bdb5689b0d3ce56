package smoothing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/db"
	"github.com/patrickwarner/openbidder/internal/observability"
)

const (
	bucketKeyPrefix = "smoothing:bucket:"
	// Idle buckets expire so storage does not grow with the campaign set.
	// Expired state reads as a full bucket, which a refill would have
	// produced anyway after this long.
	bucketTTLSeconds = 3600
)

// consumeScript atomically refills and conditionally consumes from the bucket
// hash. Returns 1 when the amount was deducted, 0 when denied. The refreshed
// tokens/last fields are written back either way.
//
// KEYS[1] = bucket key
// ARGV[1] = amount, ARGV[2] = capacity, ARGV[3] = refill rate per second,
// ARGV[4] = now (epoch seconds)
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local data = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(data[1]) or capacity
local last = tonumber(data[2]) or now
local elapsed = now - last
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * refill)
  last = now
end
if tokens + 1e-9 >= amount then
  tokens = tokens - amount
  redis.call('HMSET', key, 'tokens', tostring(tokens), 'last', tostring(last))
  redis.call('EXPIRE', key, 3600)
  return 1
else
  redis.call('HMSET', key, 'tokens', tostring(tokens), 'last', tostring(last))
  redis.call('EXPIRE', key, 3600)
  return 0
end
`)

// refundScript adds tokens back up to capacity. Returns 1.
//
// KEYS[1] = bucket key
// ARGV[1] = amount, ARGV[2] = capacity
var refundScript = redis.NewScript(`
local key = KEYS[1]
local amount = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local data = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(data[1]) or capacity
tokens = math.min(capacity, tokens + amount)
local last = tonumber(data[2]) or tonumber(redis.call('TIME')[1])
redis.call('HMSET', key, 'tokens', tostring(tokens), 'last', tostring(last))
redis.call('EXPIRE', key, 3600)
return 1
`)

// RedisService stores bucket state in a Redis hash per campaign and mutates
// it through atomically-executed Lua scripts, so multiple bidder instances
// share one smoothing state. Each call costs a network round trip.
//
// On a store or network failure TryConsume fails closed: a reservation that
// cannot be guaranteed is never granted. Refund failures are logged and left
// to passive refill to heal.
type RedisService struct {
	store   *db.RedisStore
	cfg     Config
	metrics observability.MetricsRegistry
}

// NewRedisService creates a Redis-backed smoothing service.
func NewRedisService(cfg Config, store *db.RedisStore, metrics observability.MetricsRegistry) *RedisService {
	return &RedisService{store: store, cfg: cfg, metrics: metrics}
}

func bucketKey(campaignID int64) string {
	return fmt.Sprintf("%s%d", bucketKeyPrefix, campaignID)
}

// TryConsume reserves amount from the campaign's bucket via the consume
// script. Returns false on denial or on any Redis failure.
func (s *RedisService) TryConsume(campaignID int64, amount float64) bool {
	s.metrics.IncrementSmoothingRequests(campaignID)

	args := []interface{}{
		strconv.FormatFloat(amount, 'f', -1, 64),
		strconv.FormatFloat(s.cfg.Capacity, 'f', -1, 64),
		strconv.FormatFloat(s.cfg.RefillRate, 'f', -1, 64),
		strconv.FormatInt(nowFn().Unix(), 10),
	}
	res, err := consumeScript.Run(s.store.Ctx, s.store.Client, []string{bucketKey(campaignID)}, args...).Int64()
	if err != nil {
		zap.L().Error("redis consume script failed",
			zap.Int64("campaign_id", campaignID),
			zap.Float64("amount", amount),
			zap.Error(err))
		s.metrics.IncrementSmoothingDenials(campaignID)
		return false
	}
	if res != 1 {
		s.metrics.IncrementSmoothingDenials(campaignID)
		return false
	}
	return true
}

// Refund returns amount to the campaign's bucket, best-effort.
func (s *RedisService) Refund(campaignID int64, amount float64) {
	if amount <= 0 {
		return
	}
	args := []interface{}{
		strconv.FormatFloat(amount, 'f', -1, 64),
		strconv.FormatFloat(s.cfg.Capacity, 'f', -1, 64),
	}
	res, err := refundScript.Run(s.store.Ctx, s.store.Client, []string{bucketKey(campaignID)}, args...).Int64()
	if err != nil {
		zap.L().Error("redis refund script failed",
			zap.Int64("campaign_id", campaignID),
			zap.Float64("amount", amount),
			zap.Error(err))
		s.metrics.IncrementSmoothingRefundFailures()
		return
	}
	if res != 1 {
		zap.L().Warn("refund script returned unexpected result",
			zap.Int64("campaign_id", campaignID),
			zap.Int64("result", res))
	}
}

// Available reads the bucket fields and computes the refilled token count
// without mutating state. Returns 0 on any Redis failure.
func (s *RedisService) Available(campaignID int64) float64 {
	vals, err := s.store.Client.HMGet(s.store.Ctx, bucketKey(campaignID), "tokens", "last").Result()
	if err != nil {
		zap.L().Error("redis read tokens failed", zap.Int64("campaign_id", campaignID), zap.Error(err))
		return 0.0
	}

	now := nowFn().Unix()
	tokens := s.cfg.Capacity
	last := now
	if v, ok := vals[0].(string); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			tokens = f
		}
	}
	if v, ok := vals[1].(string); ok {
		if l, err := strconv.ParseInt(v, 10, 64); err == nil {
			last = l
		}
	}
	if elapsed := now - last; elapsed > 0 {
		tokens = min(s.cfg.Capacity, tokens+float64(elapsed)*s.cfg.RefillRate)
	}
	return tokens
}

// BucketTTL reports how long idle bucket state survives in Redis.
func BucketTTL() time.Duration {
	return bucketTTLSeconds * time.Second
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RickCreator87/AIGateway-Ollama-fc3eadfe/internal/policy"
)

// admitScript performs the check-and-increment atomically on the Redis
// side. Returns {remaining, pttl} on admission and {-1, pttl} on rejection.
var admitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local cost = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if current + cost > limit then
  return {-1, redis.call('PTTL', KEYS[1])}
end
current = redis.call('INCRBY', KEYS[1], cost)
if current == cost then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {limit - current, redis.call('PTTL', KEYS[1])}
`)

// Redis is a Limiter backed by a shared Redis store, for deployments
// running more than one gateway process. The window is keyed by
// ratelimit:{key}:{model} and expires with the window TTL, so reset is as
// lazy as in the in-memory limiter.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Admit implements Limiter.
func (r *Redis) Admit(ctx context.Context, keyID, model string, cost int64, b policy.Budget) (int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", keyID, model)
	windowMs := int64(b.WindowSeconds) * 1000

	res, err := admitScript.Run(ctx, r.client, []string{key}, cost, b.Limit, windowMs).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("rate limit admission: %w", err)
	}
	if len(res) != 2 {
		return 0, fmt.Errorf("rate limit admission: unexpected script reply %v", res)
	}

	remaining, pttl := res[0], res[1]
	if remaining < 0 {
		retryAfter := time.Duration(b.WindowSeconds) * time.Second
		if pttl > 0 {
			retryAfter = time.Duration(pttl) * time.Millisecond
		}
		return 0, &Error{
			Limit:         b.Limit,
			WindowSeconds: b.WindowSeconds,
			RetryAfter:    retryAfter,
		}
	}
	return remaining, nil
}

package usage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "usage:"

// Redis is a Meter backed by a shared Redis store. Counters live in one
// hash per key, usage:{key}, with fields {model}.tokens, {model}.requests,
// total.tokens and total.requests, which is the layout the reporting
// surface reads.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed meter.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Record implements Meter.
func (r *Redis) Record(ctx context.Context, keyID, model string, tokens int64, requestCounted bool) error {
	key := keyPrefix + keyID

	pipe := r.client.Pipeline()
	if tokens > 0 {
		pipe.HIncrBy(ctx, key, model+".tokens", tokens)
		pipe.HIncrBy(ctx, key, "total.tokens", tokens)
	}
	if requestCounted {
		pipe.HIncrBy(ctx, key, model+".requests", 1)
		pipe.HIncrBy(ctx, key, "total.requests", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Snapshot implements Meter.
func (r *Redis) Snapshot(ctx context.Context, keyID string) (Counters, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+keyID).Result()
	if err != nil {
		return Counters{}, fmt.Errorf("usage snapshot: %w", err)
	}
	return parseFields(fields), nil
}

// SnapshotAll implements Meter.
func (r *Redis) SnapshotAll(ctx context.Context) (map[string]Counters, error) {
	out := make(map[string]Counters)

	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("usage snapshot: %w", err)
		}
		out[strings.TrimPrefix(key, keyPrefix)] = parseFields(fields)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("usage snapshot: %w", err)
	}
	return out, nil
}

func parseFields(fields map[string]string) Counters {
	c := Counters{Models: make(map[string]Totals)}
	for field, raw := range fields {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		// Split at the last dot: model names may themselves contain dots
		// (llama3.1.tokens -> scope llama3.1, counter tokens).
		i := strings.LastIndex(field, ".")
		if i < 0 {
			continue
		}
		scope, counter := field[:i], field[i+1:]
		if scope == "total" {
			switch counter {
			case "tokens":
				c.Total.Tokens = n
			case "requests":
				c.Total.Requests = n
			}
			continue
		}
		t := c.Models[scope]
		switch counter {
		case "tokens":
			t.Tokens = n
		case "requests":
			t.Requests = n
		}
		c.Models[scope] = t
	}
	return c
}

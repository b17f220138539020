package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const attemptScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

// AttemptCounter counts events per key over a fixed window that starts at
// the first event.
type AttemptCounter struct {
	client redis.Cmdable
	script *redis.Script
}

func NewAttemptCounter(client redis.Cmdable) *AttemptCounter {
	if client == nil {
		return nil
	}
	return &AttemptCounter{
		client: client,
		script: redis.NewScript(attemptScript),
	}
}

// Hit records one attempt and reports whether the count is still within max.
func (a *AttemptCounter) Hit(ctx context.Context, key string, max int, window time.Duration) (*Result, error) {
	if a == nil || a.client == nil {
		return &Result{Allowed: false}, errors.New("attempt counter not configured")
	}
	if key == "" {
		return &Result{Allowed: false}, errors.New("attempt counter key is empty")
	}
	if max <= 0 || window <= 0 {
		return &Result{Allowed: false}, errors.New("attempt counter limits must be positive")
	}

	res, err := a.script.Run(ctx, a.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return &Result{Allowed: false}, err
	}
	if len(res) < 2 {
		return &Result{Allowed: false}, errors.New("invalid attempt script response")
	}

	return attemptResult(castToInt(res[0]), castToInt(res[1]), max, time.Now()), nil
}

// Reset forgets the attempts recorded under key.
func (a *AttemptCounter) Reset(ctx context.Context, key string) error {
	if a == nil || a.client == nil || key == "" {
		return nil
	}
	return a.client.Del(ctx, key).Err()
}

func attemptResult(count, ttlMillis int64, max int, now time.Time) *Result {
	if ttlMillis < 0 {
		ttlMillis = 0
	}
	reset := time.Duration(ttlMillis) * time.Millisecond
	remaining := int64(max) - count
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   count <= int64(max),
		Limit:     max,
		Remaining: int(remaining),
		ResetTime: now.Add(reset),
	}
	if !result.Allowed {
		result.RetryAfter = reset
	}
	return result
}

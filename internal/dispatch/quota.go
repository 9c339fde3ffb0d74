package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaGuard tracks daily send volume per tenant credential in Redis.
// Check-and-increment runs as a Lua script so two dispatchers sharing a
// credential cannot both pass the check on the same remaining headroom.
type QuotaGuard struct {
	redis      *redis.Client
	script     *redis.Script
	dailyLimit int
}

// Lua script for atomic daily quota reservation. Checks the counter before
// incrementing; only increments when the full reservation fits.
const quotaLuaScript = `
local key = KEYS[1]
local n = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")
if current + n > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, n)
if newVal == n then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// NewQuotaGuard creates a quota guard with a pre-compiled Lua script.
func NewQuotaGuard(redisClient *redis.Client, dailyLimit int) *QuotaGuard {
	return &QuotaGuard{
		redis:      redisClient,
		script:     redis.NewScript(quotaLuaScript),
		dailyLimit: dailyLimit,
	}
}

// NewQuotaGuardFromURL creates a quota guard by connecting to Redis.
func NewQuotaGuardFromURL(redisURL string, dailyLimit int) (*QuotaGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewQuotaGuard(client, dailyLimit), nil
}

// Reserve atomically claims n sends against the tenant's daily quota.
// Returns false with the current usage when the reservation does not fit.
func (q *QuotaGuard) Reserve(ctx context.Context, tenantID string, n int) (allowed bool, used int64, err error) {
	key := q.dayKey(tenantID, time.Now())

	result, err := q.script.Run(ctx, q.redis,
		[]string{key},
		n,
		q.dailyLimit,
		90000, // 25h TTL, outlives the day it counts
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("quota check failed: %w", err)
	}

	allowed = result[0].(int64) == 1
	used = result[1].(int64)
	return allowed, used, nil
}

// Release returns n unused reservations to the pool, e.g. after a systemic
// failure cut the loop short. Best-effort.
func (q *QuotaGuard) Release(ctx context.Context, tenantID string, n int) error {
	if n <= 0 {
		return nil
	}
	key := q.dayKey(tenantID, time.Now())
	return q.redis.DecrBy(ctx, key, int64(n)).Err()
}

// Usage returns the tenant's current daily counter.
func (q *QuotaGuard) Usage(ctx context.Context, tenantID string) (int64, error) {
	key := q.dayKey(tenantID, time.Now())
	n, err := q.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Close closes the Redis connection.
func (q *QuotaGuard) Close() error {
	return q.redis.Close()
}

func (q *QuotaGuard) dayKey(tenantID string, now time.Time) string {
	return fmt.Sprintf("sendquota:%s:%s", tenantID, now.UTC().Format("2006-01-02"))
}

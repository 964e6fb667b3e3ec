package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
	"github.com/iliyamo/tour-booking-api/internal/config"
	"github.com/iliyamo/tour-booking-api/internal/logging"
	"github.com/iliyamo/tour-booking-api/internal/metrics"
)

// MsgTooManyRequests is returned once a client has spent its budget.
const MsgTooManyRequests = "Too many requests from this IP, please try again in an hour!"

var limiterScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// tokenBucket spends one token per request. Redis holds the buckets when
// available so every instance shares a budget; otherwise, or when a Redis
// call fails, an in-process limiter keyed the same way takes over.
type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time

	mu        sync.Mutex
	local     map[string]*localBucket
	lastSweep time.Time
}

// localBucket is an in-process bucket and the time it was last used.
type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewTokenBucket returns the rate-limit middleware for cfg. A nil rdb
// selects the in-process limiter.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return newTokenBucket(cfg, rdb).middleware
}

func newTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) *tokenBucket {
	return &tokenBucket{cfg: cfg, rdb: rdb, now: time.Now, local: map[string]*localBucket{}}
}

func (tb *tokenBucket) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := buildRateKey(tb.cfg, c)
		backend := "memory"
		var d decision
		if tb.rdb != nil {
			var err error
			d, err = tb.takeRedis(c.Request().Context(), key)
			if err == nil {
				backend = "redis"
			} else {
				logging.Ctx(c.Request().Context()).Warn().Err(err).Str("key", key).Msg("rate limiter falling back to memory")
				d = tb.takeLocal(key)
			}
		} else {
			d = tb.takeLocal(key)
		}

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(tb.cfg.Capacity))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
		if tb.cfg.Debug {
			h.Set("X-RateLimit-Key", key)
		}
		if !d.allowed {
			secs := int(math.Ceil(d.retry.Seconds()))
			if secs < 0 {
				secs = 0
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			metrics.RateLimitRejections.WithLabelValues(backend).Inc()
			return apperr.New(http.StatusTooManyRequests, MsgTooManyRequests)
		}
		return next(c)
	}
}

func (tb *tokenBucket) takeRedis(ctx context.Context, key string) (decision, error) {
	args := []any{
		tb.now().UnixMilli(),
		tb.cfg.Capacity,
		tb.cfg.RefillTokens,
		tb.cfg.RefillInterval.Milliseconds(),
		int64(tb.cfg.TTL / time.Second),
	}
	vals, err := limiterScript.Run(ctx, tb.rdb, []string{key}, args...).Result()
	if err != nil {
		return decision{}, err
	}
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return decision{}, fmt.Errorf("unexpected limiter result %#v", vals)
	}
	return decision{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func (tb *tokenBucket) takeLocal(key string) decision {
	now := tb.now()
	tb.mu.Lock()
	tb.sweep(now)
	b, ok := tb.local[key]
	if !ok {
		every := tb.cfg.RefillInterval / time.Duration(tb.cfg.RefillTokens)
		b = &localBucket{lim: rate.NewLimiter(rate.Every(every), tb.cfg.Capacity)}
		tb.local[key] = b
	}
	b.seen = now
	lim := b.lim
	tb.mu.Unlock()

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return decision{retry: delay}
	}
	return decision{allowed: true, remaining: int64(lim.TokensAt(now))}
}

// idleTTL is how long an unused local bucket is kept, matching the
// expiry of the Redis buckets.
func (tb *tokenBucket) idleTTL() time.Duration {
	if tb.cfg.TTL > 0 {
		return tb.cfg.TTL
	}
	return tb.cfg.RefillInterval
}

// sweep drops local buckets idle for longer than idleTTL. It scans the
// map at most once per idleTTL. Callers hold tb.mu.
func (tb *tokenBucket) sweep(now time.Time) {
	ttl := tb.idleTTL()
	if ttl <= 0 || now.Sub(tb.lastSweep) < ttl {
		return
	}
	tb.lastSweep = now
	for k, b := range tb.local {
		if now.Sub(b.seen) >= ttl {
			delete(tb.local, k)
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userID(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

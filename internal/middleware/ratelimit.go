package middleware

import (
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

	"github.com/iliyamo/restaurant-reservation/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
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

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// verdict is one limiter decision.
type verdict struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// NewTokenBucket limits requests per key (see buildRateKey).  With a Redis
// client the bucket is shared across instances; without one each process
// keeps its own buckets.  Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passThrough
	}
	var take func(c echo.Context, key string) (verdict, error)
	if rdb != nil {
		take = redisTake(cfg, rdb)
	} else {
		take = newLocalBuckets(cfg).take
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			v, err := take(c, key)
			if err != nil {
				if cfg.Debug {
					c.Logger().Warnf("[ratelimit] backend error for key=%s: %v", key, err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !v.allowed {
				secs := int(math.Ceil(v.retry.Seconds()))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func redisTake(cfg config.RateLimitConfig, rdb *redis.Client) func(echo.Context, string) (verdict, error) {
	return func(c echo.Context, key string) (verdict, error) {
		args := []any{
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL / time.Second),
		}
		vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
		if err != nil {
			return verdict{}, err
		}
		arr, ok := vals.([]any)
		if !ok || len(arr) != 3 {
			return verdict{}, fmt.Errorf("unexpected script result %#v", vals)
		}
		return verdict{
			allowed:   asInt64(arr[0]) == 1,
			remaining: asInt64(arr[1]),
			retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
		}, nil
	}
}

// localBuckets is the in-process fallback, one rate.Limiter per key.
// Limiters idle for longer than the TTL are dropped on the next sweep.
type localBuckets struct {
	cfg   config.RateLimitConfig
	mu    sync.Mutex
	items map[string]*localBucket
	swept time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	return &localBuckets{cfg: cfg, items: make(map[string]*localBucket), swept: time.Now()}
}

func (l *localBuckets) take(_ echo.Context, key string) (verdict, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > l.cfg.TTL {
		for k, b := range l.items {
			if now.Sub(b.seen) > l.cfg.TTL {
				delete(l.items, k)
			}
		}
		l.swept = now
	}

	b, ok := l.items[key]
	if !ok {
		every := rate.Every(l.cfg.RefillInterval / time.Duration(l.cfg.RefillTokens))
		b = &localBucket{lim: rate.NewLimiter(every, l.cfg.Capacity)}
		l.items[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return verdict{allowed: false, remaining: 0, retry: delay}, nil
	}
	return verdict{allowed: true, remaining: int64(b.lim.TokensAt(now))}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
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

// buildRateKey derives the bucket key.  A client-supplied X-Session-ID
// identifies chat sessions; otherwise "anon" is used.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	session := c.Request().Header.Get("X-Session-ID")
	if session == "" {
		session = "anon"
	}
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "route":
		parts = append(parts, "route", route)
	case "session":
		parts = append(parts, "session", session)
	case "ip_session":
		parts = append(parts, "ip", ip, "session", session)
	case "ip_session_route":
		parts = append(parts, "ip", ip, "session", session, "route", route)
	default: // "ip_route"
		parts = append(parts, "ip", ip, "route", route)
	}
	return strings.Join(parts, ":")
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

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
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iliyamo/crm-backend/internal/config"
	"github.com/iliyamo/crm-backend/internal/metrics"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

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

// decision is the outcome of one token bucket take.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// RateLimiter is a token bucket per client key. Buckets live in Redis when
// a client is configured, so every instance shares them; otherwise, or
// while Redis errors, an in-process limiter per key is used.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	rdb     *redis.Client
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time

	mu        sync.Mutex
	local     map[string]*localBucket
	lastSweep time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewRateLimiter builds the limiter. rdb may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, m *metrics.Metrics, log logrus.FieldLogger) *RateLimiter {
	if m == nil {
		m = metrics.Noop()
	}
	return &RateLimiter{cfg: cfg, rdb: rdb, metrics: m, log: log, now: time.Now, local: map[string]*localBucket{}}
}

// Middleware applies the limiter. It is a no-op when rate limiting is
// disabled.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	if !l.cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(l.cfg, c)
			d := l.take(c, key)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !d.allowed {
				secs := int(math.Ceil(d.retry.Seconds()))
				if secs < 0 {
					secs = 0
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				l.metrics.RateLimited.Inc()
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": rateLimitMessage})
			}
			return next(c)
		}
	}
}

func (l *RateLimiter) take(c echo.Context, key string) decision {
	if l.rdb != nil {
		d, err := l.takeRedis(c, key)
		if err == nil {
			return d
		}
		l.log.WithError(err).WithField("key", key).Warn("redis rate limit failed, using local limiter")
	}
	return l.takeLocal(key)
}

func (l *RateLimiter) takeRedis(c echo.Context, key string) (decision, error) {
	args := []any{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}
	vals, err := limiterScript.Run(c.Request().Context(), l.rdb, []string{key}, args...).Result()
	if err != nil {
		return decision{}, err
	}
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return decision{}, fmt.Errorf("unexpected script result %#v", vals)
	}
	return decision{
		allowed:   asInt64(arr[0]) == 1,
		remaining: asInt64(arr[1]),
		retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func (l *RateLimiter) takeLocal(key string) decision {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)
	b, ok := l.local[key]
	if !ok {
		every := l.cfg.RefillInterval / time.Duration(l.cfg.RefillTokens)
		b = &localBucket{lim: rate.NewLimiter(rate.Every(every), l.cfg.Capacity)}
		l.local[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return decision{}
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return decision{retry: wait}
	}
	return decision{allowed: true, remaining: int64(b.lim.TokensAt(now))}
}

// evict drops buckets idle for longer than the configured TTL, at most once
// per TTL. The caller holds l.mu.
func (l *RateLimiter) evict(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.TTL {
		return
	}
	l.lastSweep = now
	for k, b := range l.local {
		if now.Sub(b.seen) > l.cfg.TTL {
			delete(l.local, k)
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
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := "anon"
	if u := CurrentUser(c); u != nil {
		uid = strconv.FormatUint(u.ID, 10)
	}
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

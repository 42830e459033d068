package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ganeshkumar0x/Backend-Lysa-Exam-App/v1/utils"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request for key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-process sliding-window limiter
type MemoryLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	maxReqs   int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter
func NewMemoryLimiter(maxRequests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		maxReqs:  maxRequests,
		window:   window,
		now:      time.Now,
	}
}

// Allow records the request when it is within the limit
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	valid := l.requests[key][:0]
	for _, t := range l.requests[key] {
		if now.Sub(t) < l.window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.maxReqs {
		l.requests[key] = valid
		return false, nil
	}

	l.requests[key] = append(valid, now)
	return true, nil
}

// sweep drops keys whose newest request is outside the window; caller holds mu
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, times := range l.requests {
		if len(times) == 0 || now.Sub(times[len(times)-1]) >= l.window {
			delete(l.requests, key)
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every replica
type RedisLimiter struct {
	client  redis.Cmdable
	prefix  string
	maxReqs int
	window  time.Duration
	now     func() time.Time
}

// NewRedisLimiter creates a limiter backed by Redis counters
func NewRedisLimiter(client redis.Cmdable, prefix string, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		prefix:  prefix,
		maxReqs: maxRequests,
		window:  window,
		now:     time.Now,
	}
}

// Allow increments the counter for the current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter update failed: %w", err)
	}

	return incr.Val() <= int64(l.maxReqs), nil
}

// RateLimit rejects clients over the limit with 429. Limiter failures let
// the request through.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)
			key := r.URL.Path + "|" + clientIP

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				slog.Warn("Rate limiter unavailable, allowing request", "error", err, "ip", clientIP)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				slog.Warn("Rate limit exceeded", "ip", clientIP, "path", r.URL.Path)
				utils.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

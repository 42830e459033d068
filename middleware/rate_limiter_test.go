package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow(ctx, "a")
	assert.False(t, allowed)

	// Other keys are independent
	allowed, _ = limiter.Allow(ctx, "b")
	assert.True(t, allowed)

	now = now.Add(time.Minute)
	allowed, _ = limiter.Allow(ctx, "a")
	assert.True(t, allowed)
}

func TestMemoryLimiter_SweepsIdleKeys(t *testing.T) {
	limiter := NewMemoryLimiter(5, time.Second)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "idle")
	now = now.Add(2 * time.Second)
	_, _ = limiter.Allow(context.Background(), "active")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.requests, "idle")
	assert.Contains(t, limiter.requests, "active")
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, "ratelimit:", 3, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "/verify-face|1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.Allow(ctx, "/verify-face|1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	now = now.Add(time.Minute)
	allowed, err = limiter.Allow(ctx, "/verify-face|1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := NewRedisLimiter(client, "ratelimit:", 3, time.Minute)
	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) {
	return s.allowed, s.err
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		limiter    Limiter
		wantStatus int
	}{
		{"allowed", stubLimiter{allowed: true}, http.StatusOK},
		{"rejected", stubLimiter{allowed: false}, http.StatusTooManyRequests},
		{"limiter error fails open", stubLimiter{err: errors.New("redis down")}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RateLimit(tt.limiter)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify-password", nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusTooManyRequests {
				var body map[string]string
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.Equal(t, "Rate limit exceeded", body["detail"])
			}
		})
	}
}

func TestRateLimit_WithMemoryLimiter(t *testing.T) {
	h := RateLimit(NewMemoryLimiter(1, time.Minute))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/verify-password", nil)
	req.RemoteAddr = "192.0.2.10:4000"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	other := httptest.NewRequest(http.MethodPost, "/verify-password", nil)
	other.RemoteAddr = "192.0.2.11:4000"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
}

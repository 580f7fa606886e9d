package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
	}{
		{
			name: "Any key should be allowed",
			key:  "gl_abc123",
		},
		{
			name: "Multiple calls with same key",
			key:  "gl_def456",
		},
		{
			name: "Empty key",
			key:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Call multiple times to ensure it always allows
			for i := 0; i < 10; i++ {
				allowed, err := limiter.Allow(ctx, tt.key)
				if err != nil {
					t.Errorf("Allow() error = %v, want nil", err)
				}
				if !allowed {
					t.Errorf("Allow() = false, want true")
				}
			}
		})
	}
}

func TestNoOpRateLimiter_Close(t *testing.T) {
	limiter := &NoOpRateLimiter{}
	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewRedisRateLimiter_Disabled(t *testing.T) {
	limiter, err := NewRedisRateLimiter("", 100, time.Minute, true)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v, want nil", err)
	}

	ctx := context.Background()
	allowed, err := limiter.Allow(ctx, "gl_abc123")
	if err != nil {
		t.Errorf("Allow() error = %v, want nil", err)
	}
	if !allowed {
		t.Errorf("Allow() = false, want true (disabled limiter should allow all)")
	}

	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-valid-url", 100, time.Minute, false)
	if err == nil {
		t.Error("NewRedisRateLimiter() with invalid URL should return error")
	}
}

func TestNewRedisRateLimiter_ConnectionFailed(t *testing.T) {
	_, err := NewRedisRateLimiter("redis://localhost:9999", 100, time.Minute, false)
	if err == nil {
		t.Error("NewRedisRateLimiter() with unreachable Redis should return error")
	}
}

func setupTestLimiter(t *testing.T, limit int, window time.Duration) (*miniredis.Miniredis, RateLimiter) {
	t.Helper()

	mr := miniredis.RunT(t)
	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), limit, window, false)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	return mr, limiter
}

func TestRedisRateLimiter_EnforcesLimit(t *testing.T) {
	_, limiter := setupTestLimiter(t, 5, time.Minute)
	defer limiter.Close()

	ctx := context.Background()
	key := "gl_limit_test"

	// Should allow first 5 requests
	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow() request %d error = %v", i+1, err)
		}
		if !allowed {
			t.Errorf("Allow() request %d = false, want true", i+1)
		}
	}

	// 6th request should be rate limited
	allowed, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() rate limit check error = %v", err)
	}
	if allowed {
		t.Error("Allow() request 6 = true, want false (should be rate limited)")
	}
}

func TestRedisRateLimiter_DifferentKeys(t *testing.T) {
	_, limiter := setupTestLimiter(t, 2, time.Minute)
	defer limiter.Close()

	ctx := context.Background()
	key1 := "gl_site_one"
	key2 := "gl_site_two"

	// Each script should have an independent budget
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, key1)
		if err != nil {
			t.Fatalf("Allow(key1) error = %v", err)
		}
		if !allowed {
			t.Errorf("Allow(key1) request %d = false, want true", i+1)
		}

		allowed, err = limiter.Allow(ctx, key2)
		if err != nil {
			t.Fatalf("Allow(key2) error = %v", err)
		}
		if !allowed {
			t.Errorf("Allow(key2) request %d = false, want true", i+1)
		}
	}

	// Both keys should now be at limit
	allowed, err := limiter.Allow(ctx, key1)
	if err != nil {
		t.Fatalf("Allow(key1) limit check error = %v", err)
	}
	if allowed {
		t.Error("Allow(key1) beyond limit = true, want false")
	}

	allowed, err = limiter.Allow(ctx, key2)
	if err != nil {
		t.Fatalf("Allow(key2) limit check error = %v", err)
	}
	if allowed {
		t.Error("Allow(key2) beyond limit = true, want false")
	}
}

func TestRedisRateLimiter_ContextCancellation(t *testing.T) {
	_, limiter := setupTestLimiter(t, 10, time.Minute)
	defer limiter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if _, err := limiter.Allow(ctx, "gl_cancelled"); err == nil {
		t.Error("Allow() with cancelled context should return error")
	}
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *SlidingWindowLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSlidingWindowLimiter(client, limit, window)
}

func TestAllowWithinLimit(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow(context.Background(), "1.2.3.4")
		if !allowed {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}

	allowed, wait := l.Allow(context.Background(), "1.2.3.4")
	if allowed {
		t.Error("request over limit allowed, want rejected")
	}
	if wait <= 0 {
		t.Errorf("wait = %v, want positive retry hint", wait)
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute)

	if allowed, _ := l.Allow(context.Background(), "1.1.1.1"); !allowed {
		t.Fatal("first key rejected")
	}
	if allowed, _ := l.Allow(context.Background(), "2.2.2.2"); !allowed {
		t.Error("second key rejected, limits must be independent")
	}
	if allowed, _ := l.Allow(context.Background(), "1.1.1.1"); allowed {
		t.Error("first key allowed over its limit")
	}
}

func TestAllowWithoutRedis(t *testing.T) {
	l := NewSlidingWindowLimiter(nil, 1, time.Minute)

	for i := 0; i < 5; i++ {
		if allowed, _ := l.Allow(context.Background(), "1.2.3.4"); !allowed {
			t.Fatal("limiter without Redis rejected a request, want allow-all")
		}
	}
}

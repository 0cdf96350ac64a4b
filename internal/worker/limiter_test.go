package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	if err := limiter.Wait(ctx, LimiterKey("openai", "gpt-4o-mini")); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different model should also work
	if err := limiter.Wait(ctx, LimiterKey("openai", "gpt-4o")); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "openai:gpt-4o-mini", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	duration := time.Since(start)
	if duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	key := "ollama:llama3.1"

	if err := limiter.Wait(ctx, key); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Token consumed by Wait
	if limiter.Allow(key) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("ollama:mistral") {
		t.Errorf("expected allow for other key")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default
	key := "openrouter:slow-model"

	limiter.SetRate(key, 0.1, 1) // very slow

	if !limiter.Allow(key) {
		t.Errorf("first request should pass")
	}
	if limiter.Allow(key) {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("openrouter:fast-model") {
		t.Errorf("other key should pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("mock:") {
			t.Fatalf("expected unlimited limiter to allow request %d", i)
		}
	}
}

func TestLimiterKey(t *testing.T) {
	if got := LimiterKey("openai", "gpt-4o-mini"); got != "openai:gpt-4o-mini" {
		t.Errorf("expected openai:gpt-4o-mini, got %s", got)
	}
}

package worker

import (
	"errors"
	"testing"

	"masthead/internal/model"
)

func TestLimiter_AcquireWithinBurst(t *testing.T) {
	l := NewLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if err := l.Acquire("actor-a"); err != nil {
			t.Errorf("Expected acquire %d within burst to succeed, got %v", i, err)
		}
	}
}

func TestLimiter_AcquireExhausted(t *testing.T) {
	l := NewLimiter(0.001, 1)

	if err := l.Acquire("actor-a"); err != nil {
		t.Fatalf("Expected first acquire to succeed, got %v", err)
	}

	err := l.Acquire("actor-a")
	if err == nil {
		t.Fatal("Expected rate limit error after burst exhausted")
	}
	if !model.IsRateLimited(err) {
		t.Errorf("Expected error kind rate-limited, got %v", err)
	}

	var rle *model.RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("Expected *model.RateLimitError, got %T", err)
	}
	if rle.Actor != "actor-a" {
		t.Errorf("Expected actor-a in error, got %s", rle.Actor)
	}
	if rle.RetryAfter <= 0 {
		t.Errorf("Expected positive retry-after hint, got %v", rle.RetryAfter)
	}
}

func TestLimiter_ActorsAreIndependent(t *testing.T) {
	l := NewLimiter(0.001, 1)

	if err := l.Acquire("actor-a"); err != nil {
		t.Fatalf("actor-a first acquire failed: %v", err)
	}
	if err := l.Acquire("actor-a"); err == nil {
		t.Error("Expected actor-a to be limited")
	}

	// A different actor has its own budget
	if err := l.Acquire("actor-b"); err != nil {
		t.Errorf("Expected actor-b to be unaffected, got %v", err)
	}
}

func TestLimiter_SetActorRate(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.SetActorRate("premium", 1000, 100)

	for i := 0; i < 50; i++ {
		if err := l.Acquire("premium"); err != nil {
			t.Fatalf("Expected premium acquire %d to succeed, got %v", i, err)
		}
	}
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(0.001, 2)

	if !l.Allow("actor-a") {
		t.Error("Expected first request to be allowed")
	}
	if !l.Allow("actor-a") {
		t.Error("Expected second request to be allowed")
	}
	if l.Allow("actor-a") {
		t.Error("Expected third request to be denied")
	}
}

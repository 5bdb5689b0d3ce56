package smoothing

import (
	"sync"
	"testing"
	"time"
)

// freezeTime pins nowFn to a controllable clock and restores it on cleanup.
func freezeTime(t *testing.T, start time.Time) func(d time.Duration) {
	t.Helper()
	current := start
	var mu sync.Mutex
	nowFn = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	t.Cleanup(func() { nowFn = time.Now })
	return func(d time.Duration) {
		mu.Lock()
		current = current.Add(d)
		mu.Unlock()
	}
}

func TestTokenBucket_TryConsume(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	if !bucket.TryConsume(4.0) {
		t.Error("expected first consume of 4.0 to succeed")
	}
	if !bucket.TryConsume(4.0) {
		t.Error("expected second consume of 4.0 to succeed")
	}
	// 2.0 left, 4.0 needed
	if bucket.TryConsume(4.0) {
		t.Error("expected third consume of 4.0 to be denied")
	}
	if got := bucket.Available(); got != 2.0 {
		t.Errorf("expected 2.0 tokens remaining, got %f", got)
	}
}

func TestTokenBucket_ConsumeExactBalance(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	// Repeated fractional deductions accumulate floating error; the epsilon
	// must still allow consuming the exact remaining balance.
	for i := 0; i < 100; i++ {
		if !bucket.TryConsume(0.1) {
			t.Fatalf("consume %d of 0.1 denied with tokens remaining", i+1)
		}
	}
	if bucket.TryConsume(0.1) {
		t.Error("expected consume from empty bucket to be denied")
	}
}

func TestTokenBucket_ZeroOrNegativeAmounts(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	if !bucket.TryConsume(0) {
		t.Error("expected zero consume to succeed")
	}
	if !bucket.TryConsume(-1) {
		t.Error("expected negative consume to succeed")
	}
	if got := bucket.Available(); got != 10.0 {
		t.Errorf("expected bucket untouched, got %f", got)
	}

	bucket.Refund(-5)
	if got := bucket.Available(); got != 10.0 {
		t.Errorf("expected negative refund ignored, got %f", got)
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	advance := freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	if !bucket.TryConsume(10.0) {
		t.Fatal("expected initial consume to succeed")
	}
	if bucket.TryConsume(3.0) {
		t.Error("expected empty bucket to deny")
	}

	advance(3 * time.Second)
	if !bucket.TryConsume(3.0) {
		t.Error("expected consume to succeed after 3s refill at 1/s")
	}

	// Sub-second elapsed time adds nothing
	advance(900 * time.Millisecond)
	if got := bucket.Available(); got != 0.0 {
		t.Errorf("expected no sub-second refill, got %f", got)
	}
}

func TestTokenBucket_RefillCappedAtCapacity(t *testing.T) {
	advance := freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	bucket.TryConsume(2.0)
	advance(1 * time.Hour)
	if got := bucket.Available(); got != 10.0 {
		t.Errorf("expected refill capped at capacity, got %f", got)
	}
}

func TestTokenBucket_RefundCappedAtCapacity(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(10.0, 1.0)

	bucket.TryConsume(3.0)
	bucket.Refund(8.0)
	if got := bucket.Available(); got != 10.0 {
		t.Errorf("expected refund capped at capacity, got %f", got)
	}
}

func TestTokenBucket_ConcurrentConsume(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	bucket := NewTokenBucket(100.0, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if bucket.TryConsume(1.0) {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if consumed != 100 {
		t.Errorf("expected exactly 100 successful consumes, got %d", consumed)
	}
	if got := bucket.Available(); got > consumeEpsilon {
		t.Errorf("expected empty bucket, got %f", got)
	}
}

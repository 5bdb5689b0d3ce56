package smoothing

import (
	"sync"
	"testing"
	"time"

	"github.com/patrickwarner/openbidder/internal/observability"
)

func TestInMemoryService_BucketsAreIsolated(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	svc := NewInMemoryService(Config{Capacity: 10.0, RefillRate: 1.0}, observability.NewNoOpRegistry())

	if !svc.TryConsume(1, 10.0) {
		t.Fatal("expected campaign 1 to consume its full bucket")
	}
	if !svc.TryConsume(2, 10.0) {
		t.Error("expected campaign 2 to have its own full bucket")
	}
	if svc.TryConsume(1, 0.5) {
		t.Error("expected campaign 1 to be exhausted")
	}
}

func TestInMemoryService_RefundRestoresCapacity(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	svc := NewInMemoryService(Config{Capacity: 10.0, RefillRate: 1.0}, observability.NewNoOpRegistry())

	if !svc.TryConsume(7, 6.0) {
		t.Fatal("expected consume to succeed")
	}
	svc.Refund(7, 6.0)
	if got := svc.Available(7); got != 10.0 {
		t.Errorf("expected full bucket after refund, got %f", got)
	}
}

func TestInMemoryService_ConcurrentFirstAccess(t *testing.T) {
	freezeTime(t, time.Unix(1000, 0))
	svc := NewInMemoryService(Config{Capacity: 100.0, RefillRate: 0}, observability.NewNoOpRegistry())

	// All goroutines hit the same fresh campaign; lazy creation must hand
	// every one of them the same bucket.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.TryConsume(42, 1.0)
		}()
	}
	wg.Wait()

	if got := svc.Available(42); got != 50.0 {
		t.Errorf("expected 50 tokens remaining after 50 consumes of 1.0, got %f", got)
	}
}

func TestNew_BackendSelection(t *testing.T) {
	metrics := observability.NewNoOpRegistry()

	svc, err := New(Config{Capacity: 10, RefillRate: 1, Backend: BackendMemory}, nil, metrics)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := svc.(*InMemoryService); !ok {
		t.Errorf("expected *InMemoryService, got %T", svc)
	}

	// Empty backend defaults to memory
	svc, err = New(Config{Capacity: 10, RefillRate: 1}, nil, metrics)
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := svc.(*InMemoryService); !ok {
		t.Errorf("expected *InMemoryService for empty backend, got %T", svc)
	}

	if _, err := New(Config{Backend: BackendRedis}, nil, metrics); err == nil {
		t.Error("expected error for redis backend without a store")
	}
	if _, err := New(Config{Backend: "zookeeper"}, nil, metrics); err == nil {
		t.Error("expected error for unknown backend")
	}
}

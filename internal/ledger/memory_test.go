package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/patrickwarner/openbidder/internal/models"
)

func TestInMemoryLedger_ConditionalIncrement(t *testing.T) {
	l := NewInMemoryLedger([]models.Campaign{
		{ID: 1, Budget: 10.0, Spending: 0},
	})
	ctx := context.Background()

	rows, err := l.IncrementSpendingIfNotExceeded(ctx, 1, 4.0)
	if err != nil || rows != 1 {
		t.Fatalf("expected commit, got rows=%d err=%v", rows, err)
	}

	// Exactly reaching the budget is allowed
	rows, err = l.IncrementSpendingIfNotExceeded(ctx, 1, 6.0)
	if err != nil || rows != 1 {
		t.Fatalf("expected commit up to budget, got rows=%d err=%v", rows, err)
	}

	// Budget exhausted: refused without error
	rows, err = l.IncrementSpendingIfNotExceeded(ctx, 1, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected refusal over budget, got rows=%d", rows)
	}
	if got := l.Spending(1); got != 10.0 {
		t.Errorf("expected spending pinned at 10.0, got %f", got)
	}
}

func TestInMemoryLedger_UnknownCampaign(t *testing.T) {
	l := NewInMemoryLedger(nil)

	rows, err := l.IncrementSpendingIfNotExceeded(context.Background(), 42, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected 0 rows for unknown campaign, got %d", rows)
	}
}

func TestInMemoryLedger_CancelledContext(t *testing.T) {
	l := NewInMemoryLedger([]models.Campaign{{ID: 1, Budget: 10.0}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.IncrementSpendingIfNotExceeded(ctx, 1, 1.0); err == nil {
		t.Error("expected error from cancelled context")
	}
	if got := l.Spending(1); got != 0 {
		t.Errorf("expected no spend after cancelled attempt, got %f", got)
	}
}

func TestInMemoryLedger_ConcurrentCommitsNeverOverspend(t *testing.T) {
	l := NewInMemoryLedger([]models.Campaign{{ID: 1, Budget: 100.0}})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := l.IncrementSpendingIfNotExceeded(ctx, 1, 1.0)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if rows == 1 {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if committed != 100 {
		t.Errorf("expected exactly 100 commits against a 100 budget, got %d", committed)
	}
	if got := l.Spending(1); got != 100.0 {
		t.Errorf("expected spending 100.0, got %f", got)
	}
}

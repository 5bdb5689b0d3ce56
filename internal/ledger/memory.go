package ledger

import (
	"context"
	"sync"

	"github.com/patrickwarner/openbidder/internal/models"
)

// InMemoryLedger keeps budget and spend per campaign behind a mutex. It is
// used by tests and single-node development setups where Postgres is not
// available; the check-and-increment happens under the lock so concurrent
// callers cannot overspend.
type InMemoryLedger struct {
	mu       sync.Mutex
	accounts map[int64]*account
}

type account struct {
	budget   float64
	spending float64
}

// NewInMemoryLedger seeds the ledger from the given campaigns.
func NewInMemoryLedger(campaigns []models.Campaign) *InMemoryLedger {
	l := &InMemoryLedger{accounts: make(map[int64]*account, len(campaigns))}
	for _, c := range campaigns {
		l.accounts[c.ID] = &account{budget: c.Budget, spending: c.Spending}
	}
	return l
}

func (l *InMemoryLedger) IncrementSpendingIfNotExceeded(ctx context.Context, campaignID int64, amount float64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[campaignID]
	if !ok {
		return 0, nil
	}
	if acc.spending+amount > acc.budget {
		return 0, nil
	}
	acc.spending += amount
	return 1, nil
}

// Spending returns the committed spend for a campaign, for assertions and
// diagnostics.
func (l *InMemoryLedger) Spending(campaignID int64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[campaignID]; ok {
		return acc.spending
	}
	return 0
}

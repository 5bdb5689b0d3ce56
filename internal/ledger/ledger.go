// Package ledger is the only path that permanently mutates campaign spend.
//
// The single operation is a conditional increment: spend grows by an amount
// only if the result stays within budget, decided by one atomic write at the
// storage layer rather than a read followed by a write. Losing the race is an
// ordinary outcome (0 rows affected); a transport or storage failure is a
// distinct error and must be treated by the caller as fatal for the current
// candidate, not retried against it.
package ledger

import "context"

// BudgetLedger is the campaign spend source of truth.
type BudgetLedger interface {
	// IncrementSpendingIfNotExceeded adds amount to the campaign's spend iff
	// the new spend does not exceed its budget. Returns the number of rows
	// affected (1 = committed, 0 = condition failed) and any transport error.
	IncrementSpendingIfNotExceeded(ctx context.Context, campaignID int64, amount float64) (int64, error)
}

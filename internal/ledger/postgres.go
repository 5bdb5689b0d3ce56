package ledger

import (
	"context"

	"github.com/patrickwarner/openbidder/internal/db"
)

// PostgresLedger enforces the budget invariant with a single conditional
// UPDATE against the campaigns table.
type PostgresLedger struct {
	pg *db.Postgres
}

// NewPostgresLedger wraps an initialized Postgres connection.
func NewPostgresLedger(pg *db.Postgres) *PostgresLedger {
	return &PostgresLedger{pg: pg}
}

func (l *PostgresLedger) IncrementSpendingIfNotExceeded(ctx context.Context, campaignID int64, amount float64) (int64, error) {
	return l.pg.IncrementSpendingIfNotExceeded(ctx, campaignID, amount)
}

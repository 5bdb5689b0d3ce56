package models

// Campaign represents an advertising campaign competing in bid auctions.
// A campaign bids whenever one of its keywords matches an incoming request.
// Budget is the hard spend ceiling; Spending is the committed spend so far
// and is only ever mutated through the budget ledger's conditional update,
// which keeps 0 <= Spending <= Budget at all times.
type Campaign struct {
	ID       int64    `json:"id"`       // Unique identifier for the campaign.
	Name     string   `json:"name"`     // A human-readable name (e.g., "Q4 Holiday Promotion").
	Keywords []string `json:"keywords"` // Keywords the campaign bids on. Case preserved, matched case-insensitively.
	Budget   float64  `json:"budget"`   // Total budget, fixed at creation.
	Spending float64  `json:"spending"` // Committed spend, monotonically non-decreasing.
}

// RemainingBudget returns how much the campaign can still spend.
func (c Campaign) RemainingBudget() float64 {
	return c.Budget - c.Spending
}

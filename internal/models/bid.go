package models

// BidRequest is an incoming auction request. BidID is caller-supplied and
// used only for logging and correlation; requests are not deduplicated.
type BidRequest struct {
	BidID    int64    `json:"bidId"`
	Keywords []string `json:"keywords"`
}

// BidDecision is the outcome of one auction evaluation.
type BidDecision struct {
	Won   bool    `json:"won"`
	Price float64 `json:"price"`
}

// NoBid is the canonical losing decision.
func NoBid() BidDecision {
	return BidDecision{Won: false, Price: 0.0}
}

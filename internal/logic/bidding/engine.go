// Package bidding contains the auction core of the bid engine: candidate
// generation, the fallback loop across candidates, and the bounded-time
// orchestration wrapper around one evaluation.
package bidding

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/ledger"
	"github.com/patrickwarner/openbidder/internal/logic/smoothing"
	"github.com/patrickwarner/openbidder/internal/models"
	"github.com/patrickwarner/openbidder/internal/observability"
)

// No-bid reasons reported to metrics.
const (
	reasonNoKeywords = "no_keywords"
	reasonNoMatch    = "no_match"
	reasonExhausted  = "candidates_exhausted"
	reasonCancelled  = "cancelled"
)

// Engine evaluates bid requests against the campaign set. Evaluate always
// returns a decision and never panics through to its caller; its only side
// effect is at most one committed spend increment with a matching smoothing
// reservation.
type Engine struct {
	campaigns models.CampaignStore
	ledger    ledger.BudgetLedger
	smoothing smoothing.Service
	prices    PriceGenerator
	metrics   observability.MetricsRegistry
	logger    *zap.Logger
}

// NewEngine constructs an auction engine.
func NewEngine(campaigns models.CampaignStore, l ledger.BudgetLedger, s smoothing.Service,
	prices PriceGenerator, metrics observability.MetricsRegistry, logger *zap.Logger) *Engine {
	return &Engine{
		campaigns: campaigns,
		ledger:    l,
		smoothing: s,
		prices:    prices,
		metrics:   metrics,
		logger:    logger,
	}
}

// bidCandidate pairs a campaign with a generated price for one evaluation.
type bidCandidate struct {
	campaign models.Campaign
	price    float64
}

// Evaluate runs one auction: match campaigns by keyword, price the matches,
// then walk candidates highest price first until one passes budget pre-check,
// smoothing reservation and the ledger's conditional commit. A reservation
// whose commit fails for any reason is refunded before the next candidate is
// tried, so a transient loss on the best candidate degrades to the next-best
// bidder instead of forfeiting the auction.
func (e *Engine) Evaluate(ctx context.Context, bidID int64, keywords []string) models.BidDecision {
	e.metrics.IncrementBidEvaluations()
	e.logger.Debug("evaluating bid", zap.Int64("bid_id", bidID), zap.Strings("keywords", keywords))

	if len(keywords) == 0 {
		e.metrics.IncrementNoBids(reasonNoKeywords)
		return models.NoBid()
	}

	matching := e.findMatchingCampaigns(keywords)
	if len(matching) == 0 {
		e.logger.Debug("no matching campaigns", zap.Int64("bid_id", bidID))
		e.metrics.IncrementNoBids(reasonNoMatch)
		return models.NoBid()
	}

	candidates := e.createBidCandidates(matching)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			e.metrics.IncrementNoBids(reasonCancelled)
			return models.NoBid()
		}
		if decision, ok := e.tryCandidate(ctx, bidID, candidate); ok {
			return decision
		}
	}

	e.logger.Debug("all candidates exhausted", zap.Int64("bid_id", bidID), zap.Int("candidates", len(candidates)))
	e.metrics.IncrementNoBids(reasonExhausted)
	return models.NoBid()
}

// findMatchingCampaigns keeps campaigns sharing at least one keyword with the
// request. Matching is case-insensitive and trims whitespace on both sides;
// blank keywords never match.
func (e *Engine) findMatchingCampaigns(keywords []string) []models.Campaign {
	wanted := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		if normalized := strings.ToLower(strings.TrimSpace(kw)); normalized != "" {
			wanted[normalized] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	var matching []models.Campaign
	for _, campaign := range e.campaigns.GetAllCampaigns() {
		for _, kw := range campaign.Keywords {
			normalized := strings.ToLower(strings.TrimSpace(kw))
			if normalized == "" {
				continue
			}
			if _, ok := wanted[normalized]; ok {
				matching = append(matching, campaign)
				break
			}
		}
	}
	return matching
}

// createBidCandidates prices each campaign and orders candidates by price
// descending. The sort is stable, so equal prices keep campaign scan order.
func (e *Engine) createBidCandidates(campaigns []models.Campaign) []bidCandidate {
	candidates := make([]bidCandidate, 0, len(campaigns))
	for _, campaign := range campaigns {
		candidates = append(candidates, bidCandidate{campaign: campaign, price: e.prices.Price()})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].price > candidates[j].price
	})
	return candidates
}

// tryCandidate runs the admission sequence for one candidate: budget
// pre-check, smoothing reservation, conditional ledger commit. It returns
// (decision, true) only on a committed win; every failure path refunds the
// reservation exactly once and reports (zero, false) so the caller moves on.
func (e *Engine) tryCandidate(ctx context.Context, bidID int64, candidate bidCandidate) (models.BidDecision, bool) {
	campaign := candidate.campaign

	// Cheap snapshot pre-check avoids a reservation that the ledger would
	// reject anyway. The authoritative check is the conditional update below.
	if campaign.Spending+candidate.price > campaign.Budget {
		e.logger.Info("campaign would overspend budget",
			zap.Int64("campaign_id", campaign.ID),
			zap.Float64("spending", campaign.Spending),
			zap.Float64("price", candidate.price),
			zap.Float64("budget", campaign.Budget))
		return models.BidDecision{}, false
	}

	if !e.smoothing.TryConsume(campaign.ID, candidate.price) {
		e.logger.Debug("smoothing reservation denied",
			zap.Int64("campaign_id", campaign.ID),
			zap.Float64("price", candidate.price))
		return models.BidDecision{}, false
	}

	rows, err := e.ledger.IncrementSpendingIfNotExceeded(ctx, campaign.ID, candidate.price)
	if err != nil {
		e.logger.Error("ledger update failed",
			zap.Int64("campaign_id", campaign.ID),
			zap.Float64("price", candidate.price),
			zap.Error(err))
		e.metrics.IncrementLedgerErrors()
		e.smoothing.Refund(campaign.ID, candidate.price)
		return models.BidDecision{}, false
	}
	if rows == 0 {
		e.logger.Debug("conditional update lost the budget race, trying next candidate",
			zap.Int64("campaign_id", campaign.ID))
		e.metrics.IncrementLedgerConflicts()
		e.smoothing.Refund(campaign.ID, candidate.price)
		return models.BidDecision{}, false
	}

	// Project the committed increment onto the snapshot for display reads.
	if err := e.campaigns.ApplyCampaignSpending(campaign.ID, candidate.price); err != nil {
		e.logger.Warn("failed to project spend onto snapshot",
			zap.Int64("campaign_id", campaign.ID), zap.Error(err))
	}
	e.metrics.IncrementBidWins()
	e.metrics.SetSpendTotal(campaign.ID, campaign.Spending+candidate.price)

	e.logger.Info("bid won",
		zap.Int64("bid_id", bidID),
		zap.Int64("campaign_id", campaign.ID),
		zap.Float64("price", candidate.price))
	return models.BidDecision{Won: true, Price: candidate.price}, true
}

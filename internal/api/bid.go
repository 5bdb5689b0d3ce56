package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/middleware"
)

var tracer = otel.Tracer("openbidder")

type bidRequestBody struct {
	BidID    *int64   `json:"bidId"`
	Keywords []string `json:"keywords"`
}

type bidResponseBody struct {
	BidID     int64   `json:"bidId"`
	BidAmount float64 `json:"bidAmount"`
}

// validateBidRequest enforces the request contract: bidId present, at least
// one keyword, no blank keywords.
func validateBidRequest(req bidRequestBody) string {
	if req.BidID == nil {
		return "bidId is required"
	}
	if len(req.Keywords) == 0 {
		return "at least one keyword is required"
	}
	for _, kw := range req.Keywords {
		if strings.TrimSpace(kw) == "" {
			return "keyword cannot be blank"
		}
	}
	return ""
}

// BidHandler handles POST /bids. A winning evaluation returns 200 with the
// bid amount; every other outcome (no match, exhausted budget or smoothing,
// timeout, internal failure) is a uniform 204 no-bid.
func (s *Server) BidHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "BidHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/bids"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "bids"
	const method = "POST"

	var req bidRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("decode bid request", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if msg := validateBidRequest(req); msg != "" {
		logger.Error("invalid bid request", zap.String("reason", msg))
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	bidID := *req.BidID
	logger.Info("received bid request", zap.Int64("bid_id", bidID), zap.Strings("keywords", req.Keywords))

	decision, ok := s.Orchestrator.EvaluateWithDefaultTimeout(ctx, bidID, req.Keywords)
	if !ok || !decision.Won {
		logger.Debug("no bid", zap.Int64("bid_id", bidID))
		s.Metrics.IncrementRequests(endpoint, method, "204")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Info("responding with bid", zap.Int64("bid_id", bidID), zap.Float64("amount", decision.Price))
	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bidResponseBody{BidID: bidID, BidAmount: decision.Price}); err != nil {
		logger.Error("encode bid response", zap.Error(err))
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/middleware"
	"github.com/patrickwarner/openbidder/internal/models"
)

type campaignRequestBody struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Budget   float64  `json:"budget"`
}

func validateCampaignRequest(req campaignRequestBody) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.Budget <= 0 {
		return "budget must be positive"
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

// CreateCampaignHandler handles POST /campaigns. Keywords are stored trimmed;
// matching additionally folds case at auction time.
func (s *Server) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "campaigns"
	const method = "POST"

	var req campaignRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if msg := validateCampaignRequest(req); msg != "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	keywords := make([]string, 0, len(req.Keywords))
	seen := make(map[string]struct{}, len(req.Keywords))
	for _, kw := range req.Keywords {
		trimmed := strings.TrimSpace(kw)
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		keywords = append(keywords, trimmed)
	}

	campaign := models.Campaign{Name: req.Name, Keywords: keywords, Budget: req.Budget}
	if err := s.PG.InsertCampaign(&campaign); err != nil {
		logger.Error("insert campaign", zap.Error(err))
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "failed to create campaign", http.StatusInternalServerError)
		return
	}
	if err := s.Campaigns.InsertCampaign(campaign); err != nil {
		logger.Warn("insert campaign into snapshot", zap.Error(err))
	}

	logger.Info("campaign created", zap.Int64("campaign_id", campaign.ID), zap.String("name", campaign.Name))
	s.Metrics.IncrementRequests(endpoint, method, "201")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		logger.Error("encode campaign response", zap.Error(err))
	}
}

// ListCampaignsHandler handles GET /campaigns from the in-memory snapshot.
func (s *Server) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "campaigns"
	const method = "GET"

	campaigns := s.Campaigns.GetAllCampaigns()

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaigns); err != nil {
		logger.Error("encode campaigns response", zap.Error(err))
	}
}

// GetCampaignHandler handles GET /campaigns/{id}.
func (s *Server) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	start := time.Now()
	const endpoint = "campaign"
	const method = "GET"

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign := s.Campaigns.GetCampaign(id)
	if campaign == nil {
		s.Metrics.IncrementRequests(endpoint, method, "404")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		logger.Error("encode campaign response", zap.Error(err))
	}
}

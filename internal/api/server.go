// Package api maps HTTP requests onto the bid engine. The handlers are a
// thin layer: validation and response shaping live here, every decision is
// made by the orchestrator and the campaign services behind it.
package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/config"
	"github.com/patrickwarner/openbidder/internal/db"
	"github.com/patrickwarner/openbidder/internal/logic/bidding"
	"github.com/patrickwarner/openbidder/internal/middleware"
	"github.com/patrickwarner/openbidder/internal/models"
	"github.com/patrickwarner/openbidder/internal/observability"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger       *zap.Logger
	PG           *db.Postgres
	Campaigns    models.CampaignStore
	Orchestrator *bidding.Orchestrator
	Metrics      observability.MetricsRegistry
	Config       config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, pg *db.Postgres, campaigns models.CampaignStore,
	orchestrator *bidding.Orchestrator, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:       logger,
		PG:           pg,
		Campaigns:    campaigns,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Config:       cfg,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithRequestLogger(s.Logger))

	r.HandleFunc("/bids", s.BidHandler).Methods("POST")
	r.HandleFunc("/campaigns", s.CreateCampaignHandler).Methods("POST")
	r.HandleFunc("/campaigns", s.ListCampaignsHandler).Methods("GET")
	r.HandleFunc("/campaigns/{id:[0-9]+}", s.GetCampaignHandler).Methods("GET")
	r.HandleFunc("/healthz", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

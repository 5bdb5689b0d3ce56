package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/patrickwarner/openbidder/internal/config"
	"github.com/patrickwarner/openbidder/internal/ledger"
	"github.com/patrickwarner/openbidder/internal/logic/bidding"
	"github.com/patrickwarner/openbidder/internal/logic/smoothing"
	"github.com/patrickwarner/openbidder/internal/models"
	"github.com/patrickwarner/openbidder/internal/observability"
)

type stubPrices struct{ price float64 }

func (s stubPrices) Price() float64 { return s.price }

// newTestServer wires a full server against in-memory services. Postgres is
// nil; handlers that need it are covered by integration tests.
func newTestServer(t *testing.T, campaigns ...models.Campaign) *Server {
	t.Helper()

	store := models.NewInMemoryCampaignStore()
	require.NoError(t, store.SetCampaigns(campaigns))

	metrics := observability.NewNoOpRegistry()
	logger := zap.NewNop()

	smoother := smoothing.NewInMemoryService(smoothing.Config{Capacity: 1e6, RefillRate: 0}, metrics)
	engine := bidding.NewEngine(store, ledger.NewInMemoryLedger(campaigns), smoother,
		stubPrices{price: 4.25}, metrics, logger)
	pool := bidding.NewPool(bidding.PoolConfig{CoreSize: 2, MaxSize: 4, QueueSize: 10}, logger)
	t.Cleanup(pool.Shutdown)
	orch := bidding.NewOrchestrator(engine, pool, 500*time.Millisecond, metrics, logger)

	return NewServer(logger, nil, store, orch, metrics, config.Config{})
}

func postBid(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/bids", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestBidHandler_WinningBid(t *testing.T) {
	s := newTestServer(t, models.Campaign{ID: 1, Name: "shoes", Keywords: []string{"shoes"}, Budget: 100})

	rec := postBid(t, s, `{"bidId": 17, "keywords": ["Shoes"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		BidID     int64   `json:"bidId"`
		BidAmount float64 `json:"bidAmount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(17), resp.BidID)
	assert.Equal(t, 4.25, resp.BidAmount)
}

func TestBidHandler_NoBidIsNoContent(t *testing.T) {
	s := newTestServer(t, models.Campaign{ID: 1, Keywords: []string{"shoes"}, Budget: 100})

	rec := postBid(t, s, `{"bidId": 17, "keywords": ["books"]}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestBidHandler_Validation(t *testing.T) {
	s := newTestServer(t, models.Campaign{ID: 1, Keywords: []string{"shoes"}, Budget: 100})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"bidId": `},
		{"missing bidId", `{"keywords": ["shoes"]}`},
		{"no keywords", `{"bidId": 1, "keywords": []}`},
		{"blank keyword", `{"bidId": 1, "keywords": ["shoes", "  "]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postBid(t, s, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestBidHandler_ExhaustedBudgetIsNoContent(t *testing.T) {
	// Price 4.25 against a 4.0 budget fails the pre-check for the only match.
	s := newTestServer(t, models.Campaign{ID: 1, Keywords: []string{"shoes"}, Budget: 4.0})

	rec := postBid(t, s, `{"bidId": 17, "keywords": ["shoes"]}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListCampaignsHandler(t *testing.T) {
	s := newTestServer(t,
		models.Campaign{ID: 1, Name: "shoes", Keywords: []string{"shoes"}, Budget: 100},
		models.Campaign{ID: 2, Name: "books", Keywords: []string{"books"}, Budget: 50},
	)

	req := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var campaigns []models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &campaigns))
	assert.Len(t, campaigns, 2)
}

func TestGetCampaignHandler(t *testing.T) {
	s := newTestServer(t, models.Campaign{ID: 1, Name: "shoes", Keywords: []string{"shoes"}, Budget: 100})

	req := httptest.NewRequest(http.MethodGet, "/campaigns/1", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var c models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "shoes", c.Name)

	req = httptest.NewRequest(http.MethodGet, "/campaigns/99", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

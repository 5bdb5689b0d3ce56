package models

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotFound is returned when a campaign is not found in the store.
var ErrNotFound = errors.New("campaign not found")

// CampaignStore provides thread-safe access to the campaign set consumed by
// the auction engine. Reads are snapshot reads with no consistency guarantee
// beyond "recent"; the budget invariant is enforced by the ledger, not here.
type CampaignStore interface {
	// Read operations (hot path)
	GetAllCampaigns() []Campaign
	GetCampaign(campaignID int64) *Campaign

	// Write operations (reload / management path)
	SetCampaigns(campaigns []Campaign) error
	InsertCampaign(campaign Campaign) error

	// ApplyCampaignSpending projects a spend increment that was already
	// committed by the ledger onto the in-memory snapshot. It is a display
	// aid, not a second source of truth.
	ApplyCampaignSpending(campaignID int64, amount float64) error
}

// campaignSnapshot is an immutable view of all campaigns.
type campaignSnapshot struct {
	campaigns []Campaign
	index     map[int64]*Campaign
}

func buildSnapshot(campaigns []Campaign) *campaignSnapshot {
	snap := &campaignSnapshot{
		campaigns: campaigns,
		index:     make(map[int64]*Campaign, len(campaigns)),
	}
	for i := range campaigns {
		snap.index[campaigns[i].ID] = &campaigns[i]
	}
	return snap
}

// InMemoryCampaignStore implements CampaignStore with atomic snapshot swaps.
// Readers never block writers and always observe a consistent campaign set.
type InMemoryCampaignStore struct {
	data    atomic.Pointer[campaignSnapshot]
	writeMu sync.Mutex // serializes snapshot rebuilds
}

// NewInMemoryCampaignStore creates an empty store.
func NewInMemoryCampaignStore() *InMemoryCampaignStore {
	store := &InMemoryCampaignStore{}
	store.data.Store(buildSnapshot(nil))
	return store
}

// GetAllCampaigns returns a copy of the current campaign set.
func (s *InMemoryCampaignStore) GetAllCampaigns() []Campaign {
	data := s.data.Load()
	result := make([]Campaign, len(data.campaigns))
	copy(result, data.campaigns)
	return result
}

// GetCampaign returns a copy of the campaign with the given ID, or nil.
func (s *InMemoryCampaignStore) GetCampaign(campaignID int64) *Campaign {
	data := s.data.Load()
	if c, ok := data.index[campaignID]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// SetCampaigns atomically replaces the whole campaign set.
func (s *InMemoryCampaignStore) SetCampaigns(campaigns []Campaign) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cp := make([]Campaign, len(campaigns))
	copy(cp, campaigns)
	s.data.Store(buildSnapshot(cp))
	return nil
}

// InsertCampaign adds a campaign to the snapshot. The ID must already be
// assigned by the persistence layer.
func (s *InMemoryCampaignStore) InsertCampaign(campaign Campaign) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data := s.data.Load()
	if _, ok := data.index[campaign.ID]; ok {
		return errors.New("campaign already exists")
	}
	cp := make([]Campaign, 0, len(data.campaigns)+1)
	cp = append(cp, data.campaigns...)
	cp = append(cp, campaign)
	s.data.Store(buildSnapshot(cp))
	return nil
}

// ApplyCampaignSpending bumps the snapshot's spending for a campaign.
func (s *InMemoryCampaignStore) ApplyCampaignSpending(campaignID int64, amount float64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data := s.data.Load()
	if _, ok := data.index[campaignID]; !ok {
		return ErrNotFound
	}
	cp := make([]Campaign, len(data.campaigns))
	copy(cp, data.campaigns)
	for i := range cp {
		if cp[i].ID == campaignID {
			cp[i].Spending += amount
			break
		}
	}
	s.data.Store(buildSnapshot(cp))
	return nil
}

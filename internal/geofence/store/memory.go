package store

import (
	"context"
	"sort"
	"sync"

	"safeband/internal/geofence/models"
	id "safeband/pkg/domain"
	"safeband/pkg/platform/sentinel"
)

// InMemory keeps zones in a per-profile map for tests and single-node
// development.
type InMemory struct {
	mu    sync.RWMutex
	zones map[id.ProfileID]map[id.ZoneID]*models.Zone
}

func NewInMemory() *InMemory {
	return &InMemory{zones: make(map[id.ProfileID]map[id.ZoneID]*models.Zone)}
}

func (s *InMemory) Create(_ context.Context, zone *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.zones[zone.ProfileID]
	if profile == nil {
		profile = make(map[id.ZoneID]*models.Zone)
		s.zones[zone.ProfileID] = profile
	}
	if _, exists := profile[zone.ID]; exists {
		return sentinel.ErrConflict
	}
	profile[zone.ID] = zone.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, profileID id.ProfileID, zoneID id.ZoneID) (*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if zone, ok := s.zones[profileID][zoneID]; ok {
		return zone.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zones []*models.Zone
	for _, zone := range s.zones[profileID] {
		zones = append(zones, zone.Clone())
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].SortOrder != zones[j].SortOrder {
			return zones[i].SortOrder < zones[j].SortOrder
		}
		return zones[i].CreatedAt.Before(zones[j].CreatedAt)
	})
	return zones, nil
}

func (s *InMemory) Update(_ context.Context, zone *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := s.zones[zone.ProfileID]
	if _, exists := profile[zone.ID]; !exists {
		return sentinel.ErrNotFound
	}
	profile[zone.ID] = zone.Clone()
	return nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"safeband/internal/bracelet/models"
	id "safeband/pkg/domain"
	"safeband/pkg/platform/sentinel"
)

// InMemory keeps identity records in a map. It favors clarity over
// performance and backs unit tests and single-node development.
type InMemory struct {
	mu        sync.RWMutex
	bracelets map[id.BraceletID]*models.Identity
}

func NewInMemory() *InMemory {
	return &InMemory{bracelets: make(map[id.BraceletID]*models.Identity)}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, identity *models.Identity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bracelets[identity.ID]; exists {
		return false, nil
	}
	s.bracelets[identity.ID] = identity.Clone()
	return true, nil
}

func (s *InMemory) FindByID(_ context.Context, braceletID id.BraceletID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.bracelets[braceletID]; ok {
		return record.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByBatch(_ context.Context, batchID id.BatchID) ([]*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*models.Identity
	for _, record := range s.bracelets {
		if record.BatchID == batchID {
			records = append(records, record.Clone())
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// Execute holds the write lock across validate and mutate so concurrent
// mutations of the same record serialize; the loser re-reads the
// winner's state and fails its own validation.
func (s *InMemory) Execute(_ context.Context, braceletID id.BraceletID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.bracelets[braceletID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := record.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.bracelets[braceletID] = working
	return working.Clone(), nil
}

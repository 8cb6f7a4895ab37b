package store

import (
	"context"
	"sync"

	"biohive/internal/aggregation/models"
	"biohive/pkg/domain"
	"biohive/pkg/platform/sentinel"
)

// InMemory is the map-backed signal store used by unit tests and local runs.
type InMemory struct {
	mu     sync.RWMutex
	byDate map[string]*models.AggregatedSignal
}

func NewInMemory() *InMemory {
	return &InMemory{byDate: make(map[string]*models.AggregatedSignal)}
}

func (s *InMemory) Upsert(_ context.Context, signal *models.AggregatedSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *signal
	s.byDate[signal.Date.String()] = &copied
	return nil
}

func (s *InMemory) FindByDate(_ context.Context, date domain.Date) (*models.AggregatedSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	signal, ok := s.byDate[date.String()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *signal
	return &copied, nil
}

package store

import (
	"context"
	"sync"

	"biohive/internal/ledger/models"
	"biohive/pkg/platform/sentinel"
)

// InMemory is the slice-backed chain used by unit tests and local runs.
type InMemory struct {
	mu       sync.RWMutex
	entries  []*models.Entry
	byReport map[string]*models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{byReport: make(map[string]*models.Entry)}
}

func (s *InMemory) Last(_ context.Context) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.entries[len(s.entries)-1]
	return &copied, nil
}

func (s *InMemory) Insert(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 && s.entries[len(s.entries)-1].Position >= entry.Position {
		return sentinel.ErrConflict
	}
	copied := *entry
	s.entries = append(s.entries, &copied)
	s.byReport[entry.ReportID] = &copied
	return nil
}

func (s *InMemory) FindByReportID(_ context.Context, reportID string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byReport[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *InMemory) ListOrdered(_ context.Context) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entry, len(s.entries))
	for i, entry := range s.entries {
		copied := *entry
		out[i] = &copied
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// RemoveAt drops the entry at index i, simulating out-of-band tampering with
// the stored chain. Test hook; no production code path calls it.
func (s *InMemory) RemoveAt(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.entries) {
		return false
	}
	delete(s.byReport, s.entries[i].ReportID)
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

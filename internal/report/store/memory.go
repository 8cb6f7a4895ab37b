package store

import (
	"context"
	"sort"
	"sync"

	"biohive/internal/report/models"
	"biohive/pkg/domain"
	"biohive/pkg/platform/sentinel"
)

type nodeDate struct {
	nodeID string
	date   domain.Date
}

// InMemory is the map-backed report store used by unit tests and local runs.
// The mutex makes Insert's uniqueness check-and-set atomic, matching the
// guarantee the Postgres unique constraint gives.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[string]*models.SymptomReport
	byKey    map[nodeDate]string
	inserted []string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:  make(map[string]*models.SymptomReport),
		byKey: make(map[nodeDate]string),
	}
}

func (s *InMemory) Insert(_ context.Context, report *models.SymptomReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nodeDate{nodeID: report.NodeID, date: report.Date}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}
	copied := *report
	s.byID[report.ReportID] = &copied
	s.byKey[key] = report.ReportID
	s.inserted = append(s.inserted, report.ReportID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, reportID string) (*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.byID[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (s *InMemory) FindByNodeAndDate(_ context.Context, nodeID string, date domain.Date) (*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[nodeDate{nodeID: nodeID, date: date}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *InMemory) ListByDate(_ context.Context, date domain.Date) ([]*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SymptomReport
	for _, id := range s.inserted {
		if report := s.byID[id]; report.Date == date {
			copied := *report
			out = append(out, &copied)
		}
	}
	// Deterministic order regardless of insertion interleaving.
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

func (s *InMemory) ListByNode(_ context.Context, nodeID string, filter HistoryFilter) ([]*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SymptomReport
	for _, id := range s.inserted {
		report := s.byID[id]
		if report.NodeID != nodeID {
			continue
		}
		if filter.From != nil && report.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && report.Date.After(*filter.To) {
			continue
		}
		copied := *report
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemory) ListFlagged(_ context.Context, minScore int) ([]*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SymptomReport
	for _, id := range s.inserted {
		report := s.byID[id]
		if report.RequiresReview && report.SuspicionScore >= minScore {
			copied := *report
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SuspicionScore > out[j].SuspicionScore })
	return out, nil
}

func (s *InMemory) CountByNode(_ context.Context, nodeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, report := range s.byID {
		if report.NodeID == nodeID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountFlaggedByNode(_ context.Context, nodeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, report := range s.byID {
		if report.NodeID == nodeID && report.RequiresReview {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) LatestByNode(_ context.Context, nodeID string) (*models.SymptomReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.SymptomReport
	for _, report := range s.byID {
		if report.NodeID != nodeID {
			continue
		}
		if latest == nil || report.Date.After(latest.Date) {
			latest = report
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// Tamper overwrites stored symptom counts in place, bypassing the append-only
// contract. Test hook for exercising ledger verification; no production code
// path calls it.
func (s *InMemory) Tamper(reportID string, counts models.SymptomCounts) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.byID[reportID]
	if !ok {
		return false
	}
	report.Symptoms = counts
	return true
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"biohive/internal/registry/models"
	"biohive/pkg/platform/sentinel"
)

// InMemory is the map-backed registry used by unit tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	nodes map[string]*models.Node
}

func NewInMemory() *InMemory {
	return &InMemory{nodes: make(map[string]*models.Node)}
}

func (s *InMemory) FindByID(_ context.Context, nodeID string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *node
	return &copied, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		copied := *node
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out, nil
}

func (s *InMemory) Create(_ context.Context, node *models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.NodeID]; exists {
		return sentinel.ErrConflict
	}
	copied := *node
	s.nodes[node.NodeID] = &copied
	return nil
}

func (s *InMemory) TouchLastReport(_ context.Context, nodeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	node.LastReportAt = &at
	return nil
}

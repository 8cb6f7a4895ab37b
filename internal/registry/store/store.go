// Package store persists the node registry. The intake pipeline only needs
// active-node lookups and a last-report timestamp touch; registration itself
// is an operator concern.
package store

import (
	"context"
	"time"

	"biohive/internal/registry/models"
)

// Store is the node registry persistence contract.
type Store interface {
	// FindByID returns the node or sentinel.ErrNotFound.
	FindByID(ctx context.Context, nodeID string) (*models.Node, error)
	// List returns all registered nodes ordered by node ID.
	List(ctx context.Context) ([]*models.Node, error)
	// Create registers a node; sentinel.ErrConflict if the ID is taken.
	Create(ctx context.Context, node *models.Node) error
	// TouchLastReport records the time of the node's latest accepted report.
	TouchLastReport(ctx context.Context, nodeID string, at time.Time) error
}

// Package store persists aggregated daily signals, keyed by date. Writes are
// upserts: recomputation replaces the previous row for the same date.
package store

import (
	"context"

	"biohive/internal/aggregation/models"
	"biohive/pkg/domain"
)

// Store is the aggregated-signal persistence contract.
type Store interface {
	// Upsert inserts or replaces the signal for its date.
	Upsert(ctx context.Context, signal *models.AggregatedSignal) error
	// FindByDate returns the signal or sentinel.ErrNotFound.
	FindByDate(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error)
}

// Package store persists the audit chain. The chain only grows: entries are
// never mutated or removed, and corruption is detected by the service layer,
// never corrected here.
package store

import (
	"context"

	"biohive/internal/ledger/models"
)

// Store is the ledger persistence contract.
//
// Append integrity: reading the tail and inserting the successor must behave
// as one atomic unit. The Postgres implementation locks the tail row when
// called inside a transaction; the in-memory implementation relies on the
// intake path's single-writer transaction runner.
type Store interface {
	// Last returns the chain tail or sentinel.ErrNotFound when empty.
	Last(ctx context.Context) (*models.Entry, error)
	// Insert appends a prepared entry. Returns sentinel.ErrConflict when the
	// position is already taken (a concurrent append won the race).
	Insert(ctx context.Context, entry *models.Entry) error
	// FindByReportID returns the report's entry or sentinel.ErrNotFound.
	FindByReportID(ctx context.Context, reportID string) (*models.Entry, error)
	// ListOrdered returns all entries in chain order.
	ListOrdered(ctx context.Context) ([]*models.Entry, error)
	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)
}

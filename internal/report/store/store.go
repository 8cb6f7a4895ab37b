// Package store persists symptom reports. Reports are append-only: there is
// no update or delete, and the (node_id, date) pair is unique. The store is
// the authoritative guard for that uniqueness; the validator's pre-check is
// advisory only.
package store

import (
	"context"

	"biohive/internal/report/models"
	"biohive/pkg/domain"
)

// HistoryFilter narrows ListByNode results.
type HistoryFilter struct {
	From  *domain.Date
	To    *domain.Date
	Limit int
}

// Store is the report persistence contract.
type Store interface {
	// Insert persists a new report. Returns sentinel.ErrConflict when a
	// report already exists for the same (node, date).
	Insert(ctx context.Context, report *models.SymptomReport) error
	// FindByID returns the report or sentinel.ErrNotFound.
	FindByID(ctx context.Context, reportID string) (*models.SymptomReport, error)
	// FindByNodeAndDate returns the report or sentinel.ErrNotFound.
	FindByNodeAndDate(ctx context.Context, nodeID string, date domain.Date) (*models.SymptomReport, error)
	// ListByDate returns all reports for a calendar date.
	ListByDate(ctx context.Context, date domain.Date) ([]*models.SymptomReport, error)
	// ListByNode returns the node's reports, most recent date first.
	ListByNode(ctx context.Context, nodeID string, filter HistoryFilter) ([]*models.SymptomReport, error)
	// ListFlagged returns reports requiring review with at least minScore,
	// highest suspicion first.
	ListFlagged(ctx context.Context, minScore int) ([]*models.SymptomReport, error)
	// CountByNode returns the node's total report count.
	CountByNode(ctx context.Context, nodeID string) (int, error)
	// CountFlaggedByNode returns the node's requires-review count.
	CountFlaggedByNode(ctx context.Context, nodeID string) (int, error)
	// LatestByNode returns the node's most recent report by date, or
	// sentinel.ErrNotFound.
	LatestByNode(ctx context.Context, nodeID string) (*models.SymptomReport, error)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"biohive/internal/registry/models"
	"biohive/pkg/platform/sentinel"
	txcontext "biohive/pkg/platform/tx"
)

// Postgres persists nodes in the nodes table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) FindByID(ctx context.Context, nodeID string) (*models.Node, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT node_id, name, latitude, longitude, status, created_at, last_report_at
		FROM nodes WHERE node_id = $1
	`, nodeID)
	return scanNode(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Node, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT node_id, name, latitude, longitude, status, created_at, last_report_at
		FROM nodes ORDER BY node_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func (s *Postgres) Create(ctx context.Context, node *models.Node) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO nodes (node_id, name, latitude, longitude, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, node.NodeID, node.Name, node.Latitude, node.Longitude, node.Status, node.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert node: %w", err)
	}
	return nil
}

func (s *Postgres) TouchLastReport(ctx context.Context, nodeID string, at time.Time) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE nodes SET last_report_at = $2 WHERE node_id = $1`, nodeID, at)
	if err != nil {
		return fmt.Errorf("touch node last report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch node last report: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var node models.Node
	var lastReport sql.NullTime
	err := row.Scan(&node.NodeID, &node.Name, &node.Latitude, &node.Longitude,
		&node.Status, &node.CreatedAt, &lastReport)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan node: %w", err)
	}
	if lastReport.Valid {
		node.LastReportAt = &lastReport.Time
	}
	return &node, nil
}

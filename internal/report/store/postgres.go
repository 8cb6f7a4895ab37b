package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"biohive/internal/report/models"
	"biohive/pkg/domain"
	"biohive/pkg/platform/sentinel"
	txcontext "biohive/pkg/platform/tx"
)

const reportColumns = `report_id, node_id, date, fever_count, cough_count, gi_count,
	submitted_at, suspicion_score, requires_review`

// Postgres persists reports in the daily_reports table. The table carries the
// unique (node_id, date) constraint that backs the duplicate guard.
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

func (s *Postgres) Insert(ctx context.Context, report *models.SymptomReport) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO daily_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, report.ReportID, report.NodeID, report.Date.ToTime(),
		report.Symptoms.Fever, report.Symptoms.Cough, report.Symptoms.GI,
		report.SubmittedAt, report.SuspicionScore, report.RequiresReview)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, reportID string) (*models.SymptomReport, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM daily_reports WHERE report_id = $1`, reportID)
	return scanReport(row)
}

func (s *Postgres) FindByNodeAndDate(ctx context.Context, nodeID string, date domain.Date) (*models.SymptomReport, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM daily_reports WHERE node_id = $1 AND date = $2`,
		nodeID, date.ToTime())
	return scanReport(row)
}

func (s *Postgres) ListByDate(ctx context.Context, date domain.Date) ([]*models.SymptomReport, error) {
	return s.list(ctx,
		`SELECT `+reportColumns+` FROM daily_reports WHERE date = $1 ORDER BY node_id`,
		date.ToTime())
}

func (s *Postgres) ListByNode(ctx context.Context, nodeID string, filter HistoryFilter) ([]*models.SymptomReport, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE node_id = $1`
	args := []any{nodeID}
	if filter.From != nil {
		args = append(args, filter.From.ToTime())
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, filter.To.ToTime())
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.list(ctx, query, args...)
}

func (s *Postgres) ListFlagged(ctx context.Context, minScore int) ([]*models.SymptomReport, error) {
	return s.list(ctx, `
		SELECT `+reportColumns+` FROM daily_reports
		WHERE requires_review AND suspicion_score >= $1
		ORDER BY suspicion_score DESC, date DESC
	`, minScore)
}

func (s *Postgres) CountByNode(ctx context.Context, nodeID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM daily_reports WHERE node_id = $1`, nodeID)
}

func (s *Postgres) CountFlaggedByNode(ctx context.Context, nodeID string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM daily_reports WHERE node_id = $1 AND requires_review`, nodeID)
}

func (s *Postgres) LatestByNode(ctx context.Context, nodeID string) (*models.SymptomReport, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+reportColumns+` FROM daily_reports
		WHERE node_id = $1 ORDER BY date DESC LIMIT 1
	`, nodeID)
	return scanReport(row)
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.SymptomReport, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.SymptomReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *Postgres) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.SymptomReport, error) {
	var report models.SymptomReport
	var date sql.NullTime
	err := row.Scan(&report.ReportID, &report.NodeID, &date,
		&report.Symptoms.Fever, &report.Symptoms.Cough, &report.Symptoms.GI,
		&report.SubmittedAt, &report.SuspicionScore, &report.RequiresReview)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	if date.Valid {
		report.Date = domain.DateOf(date.Time.UTC())
	}
	return &report, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"biohive/internal/aggregation/models"
	"biohive/pkg/domain"
	"biohive/pkg/platform/sentinel"
)

const signalColumns = `date, total_fever, total_cough, total_gi, participating_nodes,
	risk_score, risk_level, anomaly_detected, computed_at`

// Postgres persists signals in the aggregated_signals table with date as the
// primary key.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Upsert(ctx context.Context, signal *models.AggregatedSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aggregated_signals (`+signalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (date) DO UPDATE SET
			total_fever = EXCLUDED.total_fever,
			total_cough = EXCLUDED.total_cough,
			total_gi = EXCLUDED.total_gi,
			participating_nodes = EXCLUDED.participating_nodes,
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			anomaly_detected = EXCLUDED.anomaly_detected,
			computed_at = EXCLUDED.computed_at
	`, signal.Date.ToTime(), signal.TotalFever, signal.TotalCough, signal.TotalGI,
		signal.ParticipatingNodes, signal.RiskScore, string(signal.RiskLevel),
		signal.AnomalyDetected, signal.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert aggregated signal: %w", err)
	}
	return nil
}

func (s *Postgres) FindByDate(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+signalColumns+` FROM aggregated_signals WHERE date = $1`, date.ToTime())

	var signal models.AggregatedSignal
	var day sql.NullTime
	var level string
	err := row.Scan(&day, &signal.TotalFever, &signal.TotalCough, &signal.TotalGI,
		&signal.ParticipatingNodes, &signal.RiskScore, &level,
		&signal.AnomalyDetected, &signal.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan aggregated signal: %w", err)
	}
	if day.Valid {
		signal.Date = domain.DateOf(day.Time)
	}
	signal.RiskLevel = models.RiskLevel(level)
	return &signal, nil
}

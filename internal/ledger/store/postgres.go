package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"biohive/internal/ledger/models"
	"biohive/pkg/platform/sentinel"
	txcontext "biohive/pkg/platform/tx"
)

const entryColumns = `id, report_id, current_hash, previous_hash, position, created_at`

// chainAppendLock keys the transaction-scoped advisory lock that serializes
// appends. One chain, one slot.
const chainAppendLock int64 = 0x42494F48495645

// Postgres persists the chain in the audit_trail table. position carries a
// unique constraint as a backstop, so even without the append lock a lost
// race surfaces as a conflict instead of a fork.
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

// Last reads the chain tail. Inside a transaction it first takes the append
// advisory lock, held until commit, so the next appender blocks here and its
// tail read then sees the committed entry. A row lock on the tail cannot give
// that guarantee under READ COMMITTED: the blocked statement keeps its
// pre-commit snapshot and returns the stale tail, and an empty chain has no
// row to lock at all.
func (s *Postgres) Last(ctx context.Context) (*models.Entry, error) {
	q := s.q(ctx)
	if _, inTx := txcontext.From(ctx); inTx {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chainAppendLock); err != nil {
			return nil, fmt.Errorf("acquire chain append lock: %w", err)
		}
	}
	return scanEntry(q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_trail ORDER BY position DESC LIMIT 1`))
}

func (s *Postgres) Insert(ctx context.Context, entry *models.Entry) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO audit_trail (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.ReportID, entry.CurrentHash, entry.PreviousHash,
		entry.Position, entry.Timestamp)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (s *Postgres) FindByReportID(ctx context.Context, reportID string) (*models.Entry, error) {
	return scanEntry(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM audit_trail WHERE report_id = $1`, reportID))
}

func (s *Postgres) ListOrdered(ctx context.Context) ([]*models.Entry, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_trail ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_trail`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var entry models.Entry
	var previous sql.NullString
	err := row.Scan(&entry.ID, &entry.ReportID, &entry.CurrentHash, &previous,
		&entry.Position, &entry.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if previous.Valid {
		entry.PreviousHash = &previous.String
	}
	return &entry, nil
}

//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors the production tables. Integration tests create it once per
// container; production deployments manage DDL out of band.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	node_id        TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	latitude       DOUBLE PRECISION NOT NULL,
	longitude      DOUBLE PRECISION NOT NULL,
	status         TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at     TIMESTAMPTZ NOT NULL,
	last_report_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS daily_reports (
	report_id       TEXT PRIMARY KEY,
	node_id         TEXT NOT NULL REFERENCES nodes(node_id),
	date            DATE NOT NULL,
	fever_count     INTEGER NOT NULL CHECK (fever_count >= 0),
	cough_count     INTEGER NOT NULL CHECK (cough_count >= 0),
	gi_count        INTEGER NOT NULL CHECK (gi_count >= 0),
	submitted_at    TIMESTAMPTZ NOT NULL,
	suspicion_score INTEGER NOT NULL DEFAULT 0,
	requires_review BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (node_id, date)
);

CREATE TABLE IF NOT EXISTS audit_trail (
	id            TEXT PRIMARY KEY,
	report_id     TEXT NOT NULL UNIQUE REFERENCES daily_reports(report_id),
	current_hash  TEXT NOT NULL,
	previous_hash TEXT,
	position      BIGINT NOT NULL UNIQUE,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS aggregated_signals (
	date                DATE PRIMARY KEY,
	total_fever         INTEGER NOT NULL,
	total_cough         INTEGER NOT NULL,
	total_gi            INTEGER NOT NULL,
	participating_nodes INTEGER NOT NULL,
	risk_score          DOUBLE PRECISION NOT NULL,
	risk_level          TEXT NOT NULL,
	anomaly_detected    BOOLEAN NOT NULL DEFAULT FALSE,
	computed_at         TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container  testcontainers.Container
	ConnString string
	DB         *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("biohive_test"),
		tcpostgres.WithUsername("biohive"),
		tcpostgres.WithPassword("biohive"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Cleanup is left to Ryuk: the container is shared via the Manager.
	return &PostgresContainer{
		Container:  container,
		ConnString: connString,
		DB:         db,
	}
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors migrations/001_infraction_records.sql.
const schema = `
CREATE TABLE IF NOT EXISTS infraction_records (
    id                  UUID PRIMARY KEY,
    record_type         TEXT NOT NULL,
    infraction_type     TEXT NOT NULL DEFAULT '',
    abuse_type          TEXT NOT NULL DEFAULT '',
    source_domain_or_ip TEXT NOT NULL,
    source_sub_domain   TEXT NOT NULL DEFAULT '',
    hosted_status       TEXT NOT NULL DEFAULT '',
    domain_id           TEXT NOT NULL DEFAULT '',
    hosting_guid        TEXT NOT NULL DEFAULT '',
    shopper_id          TEXT NOT NULL,
    ticket_id           TEXT NOT NULL DEFAULT '',
    note                TEXT NOT NULL DEFAULT '',
    ncmec_report_id     TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_infraction_records_shopper
    ON infraction_records (shopper_id, created_at);
CREATE INDEX IF NOT EXISTS idx_infraction_records_domain
    ON infraction_records (source_domain_or_ip, created_at);
CREATE INDEX IF NOT EXISTS idx_infraction_records_created_at
    ON infraction_records (created_at);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("mimir"),
		tcpostgres.WithUsername("mimir"),
		tcpostgres.WithPassword("mimir"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	db.SetConnMaxLifetime(time.Minute)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, DB: db}
	t.Cleanup(func() {
		_ = pc.DB.Close()
		_ = pc.Container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}

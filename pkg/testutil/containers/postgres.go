//go:build integration

package containers

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors the tables the Postgres stores expect. The unique
// constraint on (document_id, seq) is what turns a ledger sequence race
// into ErrSequenceConflict.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	doc_type TEXT NOT NULL,
	title TEXT NOT NULL,
	state TEXT NOT NULL,
	content_digest TEXT NOT NULL,
	version BIGINT NOT NULL,
	owner_id UUID NOT NULL,
	supersedes UUID,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL,
	seq BIGINT NOT NULL,
	payload JSONB NOT NULL,
	prev_hash TEXT NOT NULL,
	entry_hash TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE (document_id, seq)
);

CREATE TABLE IF NOT EXISTS signature_records (
	id UUID PRIMARY KEY,
	signer_id UUID NOT NULL,
	key_id TEXT NOT NULL,
	signed_at TIMESTAMPTZ NOT NULL,
	record JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS capability_grants (
	actor_id UUID NOT NULL,
	capability TEXT NOT NULL,
	document_id UUID,
	valid_from TIMESTAMPTZ NOT NULL,
	valid_until TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_capability_grants_actor ON capability_grants (actor_id);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// schema applied and an open database handle.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("docgov_test"),
		tcpostgres.WithUsername("docgov"),
		tcpostgres.WithPassword("docgov"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
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

	// Shared across suites via the Manager; Ryuk handles cleanup.
	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", "))
	return err
}

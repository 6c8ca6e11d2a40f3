package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CreateSchemaQueries builds polls, options and votes. Every statement is
// idempotent.
var CreateSchemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS polls (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL CHECK (length(btrim(title)) > 0),
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ends_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,

	`CREATE TABLE IF NOT EXISTS options (
		id BIGSERIAL PRIMARY KEY,
		poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		option_text TEXT NOT NULL CHECK (length(btrim(option_text)) > 0),
		vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
		UNIQUE (id, poll_id)
	)`,

	// (option_id, poll_id) references options(id, poll_id) so a vote can
	// never point at an option of another poll.
	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY,
		poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
		option_id BIGINT NOT NULL,
		voter_id TEXT NOT NULL,
		voted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT votes_poll_voter_key UNIQUE (poll_id, voter_id),
		CONSTRAINT votes_option_fk FOREIGN KEY (option_id, poll_id)
			REFERENCES options(id, poll_id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_polls_active_created ON polls(is_active, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_options_poll_id ON options(poll_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_option_id ON votes(option_id)`,
}

// DropSchemaQueries removes everything CreateSchemaQueries builds
var DropSchemaQueries = []string{
	`DROP TABLE IF EXISTS votes CASCADE`,
	`DROP TABLE IF EXISTS options CASCADE`,
	`DROP TABLE IF EXISTS polls CASCADE`,
}

// Migrate applies CreateSchemaQueries in order
func Migrate(ctx context.Context, db Execer) error {
	return execAll(ctx, db, CreateSchemaQueries)
}

// DropSchema applies DropSchemaQueries in order
func DropSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, DropSchemaQueries)
}

func execAll(ctx context.Context, db Execer, queries []string) error {
	for _, query := range queries {
		if _, err := db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w\nQuery: %s", err, Summary(query))
		}
	}
	return nil
}

// Summary shortens a statement for log output
func Summary(query string) string {
	if len(query) > 50 {
		return query[:50] + "..."
	}
	return query
}

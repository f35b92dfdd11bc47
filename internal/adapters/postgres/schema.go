package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements. The master_prompt CHECK pins the singleton row so a
// second prompt can never appear.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS master_prompt (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		prompt TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_runs (
		id TEXT PRIMARY KEY,
		input_client_sequence TEXT NOT NULL,
		input_chat_history JSONB NOT NULL DEFAULT '[]',
		reference_reply TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		best_delta DOUBLE PRECISION NOT NULL,
		best_prompt TEXT NOT NULL,
		run_log JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_runs_created_at ON prompt_runs (created_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the application tables and the pgvector extension if they
// do not exist yet. Run at process start, before serving requests.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS workflows (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			definition JSONB NOT NULL DEFAULT '{"nodes": [], "edges": []}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id SERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_logs (
			id SERIAL PRIMARY KEY,
			workflow_id INTEGER NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
			sender TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_logs_workflow_id ON chat_logs (workflow_id)`,
		`CREATE TABLE IF NOT EXISTS vector_entries (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			embedding VECTOR(1536),
			document TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (collection, id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

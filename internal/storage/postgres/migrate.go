package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-price-tracker/internal/storage/migrations"
)

const createVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Migrate applies journal migrations not yet recorded in schema_migrations,
// each in its own transaction, and returns how many ran.
func (p *Pool) Migrate(ctx context.Context) (int, error) {
	all, err := migrations.Load(migrations.Postgres)
	if err != nil {
		return 0, err
	}
	if _, err := p.Exec(ctx, createVersionsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range all {
		var done bool
		err := p.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
		).Scan(&done)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if done {
			continue
		}

		err = pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		applied++
	}
	return applied, nil
}

package db

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	version    int
	statements []string
}

// Types are kept to the subset SQLite and Postgres agree on. Timestamps are unix seconds.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS tips (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    images TEXT NOT NULL DEFAULT '[]',
    author_id TEXT NOT NULL,
    comments INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at BIGINT NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS guides (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    city TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    cover_url TEXT NOT NULL DEFAULT '',
    author_id TEXT NOT NULL,
    shares INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at BIGINT NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS guide_tips (
    guide_id TEXT NOT NULL REFERENCES guides(id) ON DELETE CASCADE,
    tip_id TEXT NOT NULL REFERENCES tips(id),
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (guide_id, tip_id),
    UNIQUE (guide_id, ordinal)
)`,
			`CREATE TABLE IF NOT EXISTS engagement_edges (
    kind TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (kind, actor_id, target_id)
)`,
			`CREATE INDEX IF NOT EXISTS idx_engagement_edges_target ON engagement_edges (kind, target_id)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    tip_id TEXT NOT NULL REFERENCES tips(id) ON DELETE CASCADE,
    author_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at BIGINT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_comments_tip ON comments (tip_id, created_at)`,
		},
	},
}

// SchemaVersion is the version a fully migrated database reports.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

func migrate(d DB) error {
	ctx := context.Background()

	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := CurrentVersion(ctx, d)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := d.WithTx(ctx, func(tx *Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				m.version, time.Now().Unix())
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}

		dbLogger.Info().Int("version", m.version).Msg("Applied migration")
	}
	return nil
}

func CurrentVersion(ctx context.Context, d DB) (int, error) {
	var version int
	if err := d.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"stockcost/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const gooseUp, gooseDown = "-- +goose Up", "-- +goose Down"

// Migrate applies the embedded migrations that are not recorded in
// sys_migrations yet. Files use goose annotations, so the goose CLI can run
// them as well; only the Up section is executed here.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sys_migrations (
			name       VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create sys_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	txm := NewTxManager(pool)
	for _, name := range names {
		raw, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		up := upSection(string(raw))

		err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
			q := txm.GetQuerier(ctx)
			tag, err := q.Exec(ctx, `INSERT INTO sys_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if _, err := q.Exec(ctx, up); err != nil {
				return err
			}
			logger.Info(ctx, "migration applied", "name", name)
			return nil
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// upSection returns the statements between the Up and Down annotations.
func upSection(sql string) string {
	if i := strings.Index(sql, gooseUp); i >= 0 {
		sql = sql[i+len(gooseUp):]
	}
	if i := strings.Index(sql, gooseDown); i >= 0 {
		sql = sql[:i]
	}
	return strings.TrimSpace(sql)
}

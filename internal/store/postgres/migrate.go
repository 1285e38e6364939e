package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationLockKey = "salon_schema_migrations"

type migration struct {
	name string
	up   string
}

// Migrate applies every embedded migration that has not been recorded in
// schema_migrations. It is safe to call from several processes at once.
func Migrate(ctx context.Context, db *bun.DB) ([]string, error) {
	migs, err := loadMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}

	var applied []string
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", migrationLockKey).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw(`CREATE TABLE IF NOT EXISTS schema_migrations (
			version text PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`).Exec(ctx); err != nil {
			return err
		}

		var done []string
		if err := tx.NewRaw("SELECT version FROM schema_migrations").Scan(ctx, &done); err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(done))
		for _, v := range done {
			seen[v] = struct{}{}
		}

		for _, m := range migs {
			if _, ok := seen[m.name]; ok {
				continue
			}
			if err := execStatements(ctx, tx, m.up); err != nil {
				return fmt.Errorf("migration %s: %w", m.name, err)
			}
			if _, err := tx.NewRaw("INSERT INTO schema_migrations (version) VALUES (?)", m.name).Exec(ctx); err != nil {
				return err
			}
			applied = append(applied, m.name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func execStatements(ctx context.Context, exec rawExecutor, upSQL string) error {
	for _, stmt := range splitSQLStatements(upSQL) {
		if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, err
	}

	migs := make([]migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := fs.ReadFile(fsys, "migrations/"+e.Name())
		if err != nil {
			return nil, err
		}
		up, err := extractGooseUp(string(b))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		migs = append(migs, migration{name: strings.TrimSuffix(e.Name(), ".sql"), up: up})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })
	return migs, nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

// Migrate applies the Up section of every *.sql file in migrations that has
// not been recorded in slotbook_migrations yet, in file name order. It runs
// in one transaction under an advisory lock so concurrent starts are safe.
func Migrate(ctx context.Context, db *bun.DB, migrations fs.FS) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return migrateTx(ctx, tx, migrations)
	})
}

func migrateTx(ctx context.Context, tx bun.Tx, migrations fs.FS) error {
	if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "slotbook:migrate").Exec(ctx); err != nil {
		return err
	}
	if _, err := tx.NewRaw(`CREATE TABLE IF NOT EXISTS slotbook_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`).Exec(ctx); err != nil {
		return err
	}

	var applied []string
	if err := tx.NewRaw("SELECT name FROM slotbook_migrations").Scan(ctx, &applied); err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	names, err := migrationNames(migrations)
	if err != nil {
		return err
	}
	for _, name := range names {
		if done[name] {
			continue
		}
		if err := applyMigration(ctx, tx, migrations, name); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := tx.NewRaw("INSERT INTO slotbook_migrations (name) VALUES (?)", name).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func migrationNames(migrations fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(ctx context.Context, exec rawExecutor, migrations fs.FS, name string) error {
	b, err := fs.ReadFile(migrations, name)
	if err != nil {
		return err
	}
	upSQL, err := extractGooseUp(string(b))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQLStatements(upSQL) {
		if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func extractGooseUp(sql string) (string, error) {
	const (
		upMarker   = "-- +goose Up"
		downMarker = "-- +goose Down"
	)

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := strings.TrimLeft(sql[upIdx+len(upMarker):], "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

// splitSQLStatements splits on semicolons. Function bodies in migrations
// must therefore be single statements without a trailing semicolon.
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

package identity

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

// newGooseProvider is a seam for testing goose.NewProvider.
var newGooseProvider = goose.NewProvider

// MigrateResult summarizes one migration run.
type MigrateResult struct {
	Applied []int64
}

// MigratePostgres creates schema if needed and applies the embedded
// PostgreSQL migrations inside it. The goose version table lives in the same
// schema, so several schemas can coexist in one database.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, schema string) (MigrateResult, error) {
	if pool == nil {
		return MigrateResult{}, fmt.Errorf("identity: nil pool")
	}
	if !pgIdentIsValid(schema) {
		return MigrateResult{}, fmt.Errorf("identity: invalid schema identifier")
	}

	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return MigrateResult{}, fmt.Errorf("create schema: %w", err)
	}

	// Dedicated connections pinned to the schema; the shared pool keeps its search_path.
	cc := pool.Config().ConnConfig.Copy()
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = make(map[string]string)
	}
	cc.RuntimeParams["search_path"] = schema

	db := stdlib.OpenDB(*cc)
	defer func() { _ = db.Close() }()

	return runMigrations(ctx, goose.DialectPostgres, db, postgresMigrations, "migrations/postgres")
}

// MigrateSQLite applies the embedded SQLite migrations.
func MigrateSQLite(ctx context.Context, db *sql.DB) (MigrateResult, error) {
	if db == nil {
		return MigrateResult{}, fmt.Errorf("identity: nil sqlite db")
	}
	return runMigrations(ctx, goose.DialectSQLite3, db, sqliteMigrations, "migrations/sqlite")
}

func runMigrations(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys embed.FS, dir string) (MigrateResult, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return MigrateResult{}, err
	}

	provider, err := newGooseProvider(dialect, db, sub)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("goose up: %w", err)
	}

	out := MigrateResult{Applied: make([]int64, 0, len(results))}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out.Applied = append(out.Applied, r.Source.Version)
	}
	return out, nil
}

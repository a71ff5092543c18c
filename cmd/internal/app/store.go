package app

import (
	"context"
	"database/sql"
	"fmt"

	"usersvc/cmd/identity"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openStore builds the configured identity store. When migrate is true the
// schema is brought up to date first. Closing the store releases the pool or
// database handle.
func openStore(ctx context.Context, cfg Config, log Logger, migrate bool) (identity.Store, error) {
	switch cfg.Store {
	case StorePostgres:
		pool, err := newPostgresPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if migrate {
			if err := migratePostgres(ctx, pool, cfg.DBSchema, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		st, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema), identity.WithPoolOwnership())
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("store.enabled", "kind", StorePostgres, "schema", cfg.DBSchema)
		return st, nil

	case StoreSQLite:
		db, err := identity.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if migrate {
			if err := migrateSQLite(ctx, db, log); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		st, err := identity.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("store.enabled", "kind", StoreSQLite, "path", cfg.SQLitePath)
		return st, nil

	default:
		log.Info("store.enabled", "kind", StoreMemory)
		return identity.NewMemoryStore(), nil
	}
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool, schema string, log Logger) error {
	res, err := identity.MigratePostgres(ctx, pool, schema)
	if err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	log.Info("db.migrated", "kind", StorePostgres, "applied", res.Applied)
	return nil
}

func migrateSQLite(ctx context.Context, db *sql.DB, log Logger) error {
	res, err := identity.MigrateSQLite(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	log.Info("db.migrated", "kind", StoreSQLite, "applied", res.Applied)
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// ErrDirtySchema means a previous migration failed halfway and the
// database needs manual repair before saldo can use it.
var ErrDirtySchema = errors.New("database schema is dirty")

// SchemaState is the migration version recorded in the database. A
// database that was never migrated reports version 0.
type SchemaState struct {
	Version uint
	Dirty   bool
}

// migrateSchema applies pending migrations on db and returns the version
// it ends at. db stays open: the migrate instance is never closed because
// the sqlite driver would close the handle it wraps.
func migrateSchema(ctx context.Context, db *sql.DB, logger *slog.Logger) (SchemaState, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return SchemaState{}, fmt.Errorf("open embedded migrations: %w", err)
	}
	defer src.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return SchemaState{}, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return SchemaState{}, fmt.Errorf("create migrator: %w", err)
	}

	before, err := currentVersion(m)
	if err != nil {
		return SchemaState{}, err
	}
	if before.Dirty {
		return before, fmt.Errorf("%w: version %d", ErrDirtySchema, before.Version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaState{}, fmt.Errorf("apply migrations: %w", err)
	}

	after, err := currentVersion(m)
	if err != nil {
		return SchemaState{}, err
	}
	if after.Version != before.Version {
		logger.InfoContext(ctx, "Database migrations applied",
			"from_version", before.Version,
			"to_version", after.Version)
	} else {
		logger.DebugContext(ctx, "Database schema up to date", "version", after.Version)
	}
	return after, nil
}

func currentVersion(m *migrate.Migrate) (SchemaState, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaState{}, nil
	}
	if err != nil {
		return SchemaState{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaState{Version: v, Dirty: dirty}, nil
}

// SchemaVersion reads the recorded migration version from the database.
func (r *SQLiteRepository) SchemaVersion(ctx context.Context) (SchemaState, error) {
	var sv SchemaState
	err := r.db.QueryRowContext(ctx,
		"SELECT version, dirty FROM "+migrationsTable+" LIMIT 1").Scan(&sv.Version, &sv.Dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return SchemaState{}, nil
	}
	if err != nil {
		return SchemaState{}, fmt.Errorf("query schema version: %w", err)
	}
	return sv, nil
}

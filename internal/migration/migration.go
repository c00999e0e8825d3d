// Package migration applies the embedded postgres schema and records the
// applied version so the schema gate can refuse to serve against a stale
// database. Development setups on sqlite skip all of this and AutoMigrate.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Run applies every embedded migration under an advisory lock, seeds the
// baseline access policies and marks the schema state active. It is invoked
// by the migrate entrypoint, never implicitly by serve.
func Run(db *sql.DB) error {
	if db == nil {
		return errors.New("migration requires a database handle")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	unlock, err := acquireAdvisoryLock(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		_ = unlock(context.Background())
	}()

	latest, checksum, err := scanEmbedded()
	if err != nil {
		return err
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	if _, err := ensureNotDirty(migrator); err != nil {
		return err
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	applied, err := ensureNotDirty(migrator)
	if err != nil {
		return err
	}
	if applied != latest {
		return fmt.Errorf("schema version mismatch after migrate: got %d want %d", applied, latest)
	}

	if err := seedAccessPolicies(ctx, db); err != nil {
		return err
	}
	return activateSchemaState(ctx, db, strconv.FormatUint(uint64(latest), 10), checksum)
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

func ensureNotDirty(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database is dirty at migration version %d", version)
	}
	return version, nil
}

package datastore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/grimoire/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationResult reports the schema version before and after a migration.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// Migrate installs the reference schema (identities, projects and SCM tables).
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
func Migrate(ctx context.Context, backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	db, err := openDB(ctx, backend, connStr)
	if err != nil {
		return MigrationResult{}, err
	}
	defer func() { _ = db.Close() }()

	var driver database.Driver
	var dir string
	switch backend {
	case schema.SQLiteBackend:
		dir = "migrations/sqlite"
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		dir = "migrations/mysql"
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	migrationFS, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(migrationFS, ".")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "grimoire", driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return MigrationResult{}, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	result := MigrationResult{From: currentVersion, To: currentVersion}
	if errors.Is(err, migrate.ErrNoChange) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
	}

	result.Changed = true
	if v, _, verr := m.Version(); verr == nil {
		result.To = v
	} else {
		result.To = 0
	}
	return result, nil
}

package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/iliyamo/parking-lot/internal/config"
)

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrateURL returns the golang-migrate database URL for the dialect.
func (d Dialect) MigrateURL(cfg config.DatabaseConfig) (string, error) {
	dsn, err := d.DSN(cfg)
	if err != nil {
		return "", err
	}
	switch d {
	case MySQL:
		return "mysql://" + dsn + "&multiStatements=true", nil
	case Postgres:
		return "pgx5" + strings.TrimPrefix(dsn, "postgres"), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", string(d))
}

// Migrate applies all pending embedded migrations for cfg.Driver.
func Migrate(cfg config.DatabaseConfig) error {
	d := Dialect(cfg.Driver)
	dbURL, err := d.MigrateURL(cfg)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(d))
	if err != nil {
		return fmt.Errorf("failed to create migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Source returns the embedded ledger schema as a migrate source driver.
func Source() (source.Driver, error) {
	src, err := iofs.New(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return src, nil
}

// Up applies every pending migration to the database at databaseURL.
// It returns the schema version after the run.
func Up(databaseURL string, logger *slog.Logger) (uint, error) {
	m, closeDB, err := newMigrator(databaseURL)
	if err != nil {
		return 0, err
	}
	defer closeDB()
	defer closeMigrator(m, logger)

	logger.Info("Running database migrations...")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Info("Database migrations applied", slog.Uint64("version", uint64(version)))
	return version, nil
}

// Down rolls back the given number of migrations.
func Down(databaseURL string, steps int, logger *slog.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, closeDB, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeDB()
	defer closeMigrator(m, logger)

	logger.Warn("Rolling back database migrations", slog.Int("steps", steps))
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

func newMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database URL cannot be empty")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := Source()
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, closeDB, nil
}

func closeMigrator(m *migrate.Migrate, logger *slog.Logger) {
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Failed to close migration source", slog.String("error", sourceErr.Error()))
	}
	if dbErr != nil {
		logger.Error("Failed to close migration database connection", slog.String("error", dbErr.Error()))
	}
}

package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// DefaultPath is where the SQL files live relative to the repository root
const DefaultPath = "migrations"

// Migrator applies the versioned SQL files to a postgres database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator on an open connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(migrationsPath), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up applies all pending migrations
func (m *Migrator) Up() error {
	return m.run("up", m.migrate.Up)
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	return m.run("down", m.migrate.Down)
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("steps %d", n), func() error {
		return m.migrate.Steps(n)
	})
}

// Version returns the applied version; zero means nothing is applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the version without running migrations, to recover a dirty state
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) run(op string, fn func() error) error {
	m.logger.Info("Running migrations", zap.String("op", op))

	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migrations completed",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

// ResolvePath returns an absolute migrations directory.
// Without an explicit path it tries ./migrations, then the directory two levels
// above the executable (bin/<os>/migrate layouts).
func ResolvePath(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultPath
		if _, err := os.Stat(path); err != nil {
			if exe, exeErr := os.Executable(); exeErr == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", DefaultPath)
				if _, statErr := os.Stat(candidate); statErr == nil {
					path = candidate
				}
			}
		}
	}
	return filepath.Abs(path)
}

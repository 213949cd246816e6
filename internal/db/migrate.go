package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/charmbracelet/log"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/config"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded goose migrations for one dialect.
type Migrator struct {
	provider *goose.Provider
	logger   *log.Logger
}

// NewMigrator binds the migrations for driver to the connections behind gdb.
func NewMigrator(gdb *gorm.DB, driver string, logger *log.Logger) (*Migrator, error) {
	var (
		dialect goose.Dialect
		dir     string
	)
	switch driver {
	case config.DriverPostgres:
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	case config.DriverSQLite:
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("goose db handle: %w", err)
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("goose migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(dialect, sqlDB, fsys,
		goose.WithGoMigrations(titleLowerMigration(driver)),
	)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	if len(results) == 0 {
		m.logger.Info("schema is up to date")
	}
	for _, r := range results {
		m.logger.Info("migration applied", "version", r.Source.Version, "file", sourceName(r.Source), "took", r.Duration)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	m.logger.Info("migration rolled back", "version", r.Source.Version, "file", sourceName(r.Source))
	return nil
}

// Status logs the state of every known migration.
func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, s := range statuses {
		m.logger.Info("migration", "version", s.Source.Version, "file", sourceName(s.Source), "state", s.State, "applied_at", s.AppliedAt)
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// sourceName labels Go migrations, which have no file.
func sourceName(src *goose.Source) string {
	if src.Path == "" {
		return fmt.Sprintf("go:%05d", src.Version)
	}
	return src.Path
}

// Package database owns the users schema and its migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dtroode/users-server/internal/logger"
	"github.com/dtroode/users-server/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

var _ model.Migrator = (*Migrator)(nil)

// Migrator creates the target schema and applies pending goose migrations.
type Migrator struct {
	db     *sql.DB
	schema string
	logger *logger.Logger
}

// Open opens a database/sql handle over the pgx driver for migrations.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	return db, nil
}

func NewMigrator(db *sql.DB, schema string, logger *logger.Logger) *Migrator {
	return &Migrator{db: db, schema: schema, logger: logger}
}

// Migrate ensures the schema exists, then applies every pending migration.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureSchema(ctx); err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: m.logger})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.Info("Migrator: schema up to date", "schema", m.schema)

	return nil
}

// EnsureSchema creates the configured schema when it is missing.
func (m *Migrator) EnsureSchema(ctx context.Context) error {
	if m.schema == "" {
		return nil
	}

	query := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{m.schema}.Sanitize()
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema %q: %w", m.schema, err)
	}

	return nil
}

type gooseLogger struct {
	logger *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Debug(fmt.Sprintf(format, v...), "component", "goose")
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(fmt.Sprintf(format, v...), "component", "goose")
}

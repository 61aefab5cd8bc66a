package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed files/*/*.sql
var migrationFS embed.FS

// Up applies the migrations for dialect ("sqlite3" or "postgres").
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	dir := "files/" + dialect
	if _, err := fs.Stat(migrationFS, dir); err != nil {
		return fmt.Errorf("no migrations for dialect %q: %w", dialect, err)
	}

	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

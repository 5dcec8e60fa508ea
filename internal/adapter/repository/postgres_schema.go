package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"vendorchat/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// EnsureSchema applies the bundled migrations. Every statement is
// idempotent, so running it on each start is safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("postgres: list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		ddl, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("postgres: read %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			return fmt.Errorf("postgres: apply %s: %w", name, err)
		}
		logger.Info("Applied schema %s", name)
	}
	return nil
}

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Runner applies pending migrations to a database.
type Runner struct {
	db         *sql.DB
	migrations []Migration
	logger     *slog.Logger
}

// NewRunner constructs a Runner for the given migrations. A nil logger falls
// back to slog.Default().
func NewRunner(db *sql.DB, migrations []Migration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, migrations: migrations, logger: logger.With(slog.String("component", "migration"))}
}

// Run creates the version table and applies every migration that has not been
// recorded yet, each inside its own transaction.
func (r *Runner) Run(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			execution_time_ms INTEGER NOT NULL
		)`); err != nil {
		return &MigrationError{File: "schema_migrations", Operation: "create version table", Err: err}
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]struct{}, len(applied))
	for _, version := range applied {
		done[version] = struct{}{}
	}

	pending := 0
	for _, migration := range r.migrations {
		if _, ok := done[migration.Version]; ok {
			continue
		}
		pending++
		started := time.Now()
		if err := r.apply(ctx, migration, started); err != nil {
			r.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.File),
				slog.Any("error", err),
			)
			return err
		}
		r.logger.InfoContext(ctx, "migration applied",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Duration("duration", time.Since(started)),
		)
	}

	if pending == 0 {
		r.logger.DebugContext(ctx, "schema up to date", slog.Int("applied", len(applied)))
	}
	return nil
}

// Applied returns the recorded versions in application order.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY CAST(version AS INTEGER)`)
	if err != nil {
		return nil, &MigrationError{File: "schema_migrations", Operation: "list applied versions", Err: err}
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, &MigrationError{File: "schema_migrations", Operation: "scan applied version", Err: err}
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (r *Runner) apply(ctx context.Context, migration Migration, started time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationError{Version: migration.Version, File: migration.File, Operation: "begin transaction", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmts := statements(migration.SQL)
	if len(stmts) == 0 {
		return &MigrationError{Version: migration.Version, File: migration.File, Operation: "parse SQL",
			Err: fmt.Errorf("%w: no statements", ErrInvalidMigrationFile)}
	}
	for i, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return &MigrationError{Version: migration.Version, File: migration.File,
				Operation: fmt.Sprintf("execute statement %d", i+1), Err: err}
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, execution_time_ms) VALUES (?, ?, ?)`,
		migration.Version, time.Now().UTC().Format(time.RFC3339), time.Since(started).Milliseconds(),
	); err != nil {
		return &MigrationError{Version: migration.Version, File: migration.File, Operation: "record version", Err: err}
	}

	if err = tx.Commit(); err != nil {
		return &MigrationError{Version: migration.Version, File: migration.File, Operation: "commit", Err: err}
	}
	return nil
}

package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migration.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	t.Run("applies the embedded schema once", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		db := openTestDB(t)
		migrations, err := Embedded()
		require.NoError(t, err)

		runner := NewRunner(db, migrations, nil)
		require.NoError(t, runner.Run(ctx))
		require.NoError(t, runner.Run(ctx))

		applied, err := runner.Applied(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"001", "002"}, applied)

		for _, table := range []string{"resources", "resource_hours", "reservations"} {
			var name string
			err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
			require.NoError(t, err, "table %s", table)
		}
	})

	t.Run("rolls back a failing migration", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		db := openTestDB(t)
		migrations := []Migration{
			{Version: "1", File: "1_ok.sql", SQL: "CREATE TABLE ok (id TEXT);"},
			{Version: "2", File: "2_broken.sql", SQL: "CREATE TABLE half (id TEXT); NOT VALID SQL;"},
		}

		err := NewRunner(db, migrations, nil).Run(ctx)
		var migrationErr *MigrationError
		require.ErrorAs(t, err, &migrationErr)
		assert.Equal(t, "2", migrationErr.Version)

		applied, err := NewRunner(db, nil, nil).Applied(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, applied)

		var count int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'`).Scan(&count))
		assert.Zero(t, count)
	})
}

package db

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	"github.com/stretchr/testify/require"
)

const widgetsMigration = `-- +migrate Down
DROP TABLE IF EXISTS widgets;

-- +migrate Up
CREATE TABLE widgets (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);
INSERT INTO widgets (name) VALUES ('first');
`

func TestRunMigrationsDB(t *testing.T) {
	database, err := NewSQLiteDB(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	migrations := []Migration{{ID: "001_widgets.sql", SQL: widgetsMigration}}
	log := logger.NewNopLogger()

	require.NoError(t, RunMigrationsDB(log, database, migrations))
	// already applied migrations are skipped
	require.NoError(t, RunMigrationsDB(log, database, migrations))

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM widgets`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestRunMigrationsDB_Invalid(t *testing.T) {
	database, err := NewSQLiteDB(filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	log := logger.NewNopLogger()

	err = RunMigrationsDB(log, database, []Migration{{ID: "001_empty.sql", SQL: "-- +migrate Down\nDROP TABLE x;\n"}})
	require.ErrorContains(t, err, "001_empty.sql")

	err = RunMigrationsDB(log, database, []Migration{{ID: "002_broken.sql", SQL: "-- +migrate Up\nCREATE TABLE (;\n"}})
	require.ErrorContains(t, err, "failed to apply migrations 002_broken.sql")
}

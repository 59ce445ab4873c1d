package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/CurateIndexor/internal/logger"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

// Migration is an embedded schema file with "-- +migrate Up" and "-- +migrate Down" sections.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrationsDB applies the pending migrations to an opened database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB, migrations []Migration) error {
	source, err := migrationSource(migrations)
	if err != nil {
		return err
	}

	applied, err := migrate.Exec(database, "sqlite3", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("failed to apply migrations %s: %w", migrationIDs(migrations), err)
	}

	log.Infof("applied %d of %d migrations (%s)", applied, len(migrations), migrationIDs(migrations))
	return nil
}

func migrationSource(migrations []Migration) (*migrate.MemoryMigrationSource, error) {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}
	for _, m := range migrations {
		parsed, err := migrate.ParseMigration(m.ID, strings.NewReader(m.SQL))
		if err != nil {
			return nil, fmt.Errorf("failed to parse migration %s: %w", m.ID, err)
		}
		if len(parsed.Up) == 0 {
			return nil, fmt.Errorf("migration %s has no statements after '-- +migrate Up'", m.ID)
		}
		source.Migrations = append(source.Migrations, parsed)
	}
	return source, nil
}

func migrationIDs(migrations []Migration) string {
	ids := make([]string, 0, len(migrations))
	for _, m := range migrations {
		ids = append(ids, m.ID)
	}
	return strings.Join(ids, ", ")
}

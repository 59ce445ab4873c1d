package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/CurateIndexor/internal/db"
	"github.com/goran-ethernal/CurateIndexor/internal/logger"
)

//go:embed 001_downloader_sync_state.sql
var mig001 string

//go:embed 002_downloader_block_hashes.sql
var mig002 string

// Downloader returns the schema migrations of the downloader database.
func Downloader() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_downloader_sync_state.sql",
			SQL: mig001,
		},
		{
			ID:  "002_downloader_block_hashes.sql",
			SQL: mig002,
		},
	}
}

// RunMigrationsDB brings an already opened downloader database up to date.
func RunMigrationsDB(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, Downloader())
}

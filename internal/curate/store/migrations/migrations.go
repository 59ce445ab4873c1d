// Package migrations holds the schema of the curate entity database.
package migrations

import (
	_ "embed"

	"github.com/goran-ethernal/CurateIndexor/internal/db"
)

//go:embed 001_curate_entities.sql
var mig001 string

// Curate returns the schema migrations of the curate entity database.
func Curate() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_curate_entities.sql",
			SQL: mig001,
		},
	}
}

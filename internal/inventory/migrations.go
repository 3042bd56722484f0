package inventory

import (
	"database/sql"

	"github.com/HerbHall/subnetsweep/internal/store"
)

// Component is the migration namespace of the inventory tables.
const Component = "inventory"

// Migrations returns the inventory schema migrations.
func Migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create sweeps table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE sweeps (
						id          TEXT PRIMARY KEY,
						run_id      TEXT NOT NULL,
						interface   TEXT NOT NULL DEFAULT '',
						subnet      TEXT NOT NULL,
						usable      INTEGER NOT NULL,
						online      TEXT NOT NULL DEFAULT '[]',
						online_count INTEGER NOT NULL DEFAULT 0,
						skipped     INTEGER NOT NULL DEFAULT 0,
						started_at  DATETIME NOT NULL,
						duration_ms INTEGER NOT NULL DEFAULT 0
					)`,
					`CREATE INDEX idx_sweeps_run ON sweeps(run_id)`,
					`CREATE INDEX idx_sweeps_started ON sweeps(started_at)`,
				}
				for _, s := range stmts {
					if _, err := tx.Exec(s); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

package store

import (
	"database/sql"
	"fmt"

	"cadastro/internal/logging"
)

// Migration adds a column to a table created by an older schema.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations handle databases whose tables predate newer columns.
// SQLite refuses non-constant defaults in ALTER TABLE, so data_cadastro
// stays NULL for rows written before the column existed.
var pendingMigrations = []Migration{
	{"usuario", "data_cadastro", "TIMESTAMP"},
}

func runMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "runMigrations")
	defer timer.Stop()

	for _, m := range pendingMigrations {
		has, err := columnExists(db, m.Table, m.Column)
		if err != nil {
			return fmt.Errorf("inspect %s.%s: %w", m.Table, m.Column, err)
		}
		if has {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("Applied migration: %s.%s", m.Table, m.Column)
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

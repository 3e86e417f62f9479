// Package migrate applies ordered, idempotent schema migrations to an
// embedded SQLite database, tracking applied versions in a
// schema_migrations table.
//
// Each migration runs inside its own transaction and records its version
// on success. A failing migration rolls back, stops the run, and the
// store must not be used on the resulting partial schema.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is one ordered schema upgrade. Up receives the transaction
// the migration runs in; the runner commits or rolls back.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Result reports what a migration run accomplished.
type Result struct {
	// Applied lists the versions applied during this run, in order.
	Applied []int
	// Current is the highest version recorded after the run.
	Current int
}

// Run applies every migration whose version is not yet recorded, in
// ascending version order. On failure it returns the partial Result
// (Current reflects the highest successfully-applied version) together
// with the error from the failing migration.
func Run(db *sql.DB, migrations []Migration) (*Result, error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at  TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	res := &Result{Current: highest(applied)}
	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		if err := applyOne(db, m); err != nil {
			return res, fmt.Errorf("migrate: version %d (%s): %w", m.Version, m.Description, err)
		}
		res.Applied = append(res.Applied, m.Version)
		if m.Version > res.Current {
			res.Current = m.Version
		}
	}
	return res, nil
}

// applyOne runs a single migration and records its version, all in one
// transaction so a crash never leaves an unrecorded half-applied step.
func applyOne(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := m.Up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		m.Version, m.Description, time.Now().UTC().Format("2006-01-02 15:04:05"),
	); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied versions: %w", err)
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func highest(applied map[int]bool) int {
	max := 0
	for v := range applied {
		if v > max {
			max = v
		}
	}
	return max
}

// ColumnExists reports whether a table has a named column. Migrations use
// this before ALTER TABLE so they stay safe against databases created by
// earlier schema revisions.
func ColumnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// TableExists reports whether a table or virtual table exists.
func TableExists(tx *sql.Tx, table string) (bool, error) {
	var name string
	err := tx.QueryRow(
		`SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

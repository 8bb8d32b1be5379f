package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means a fresh database.
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}
	return nil
}

// migrateV1 creates the analysis history tables.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id               TEXT PRIMARY KEY,
			user             TEXT NOT NULL,
			language         TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			error_count      INTEGER NOT NULL,
			warning_count    INTEGER NOT NULL,
			suggestion_count INTEGER NOT NULL,
			cyclomatic       INTEGER NOT NULL,
			cognitive        INTEGER NOT NULL,
			maintainability  INTEGER NOT NULL,
			payload          TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS findings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
			rule_id     TEXT NOT NULL,
			severity    TEXT NOT NULL,
			category    TEXT NOT NULL,
			line        INTEGER NOT NULL,
			col         INTEGER NOT NULL,
			message     TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_analyses_user_time ON analyses(user, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_user_lang ON analyses(user, language)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_analysis ON findings(analysis_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_category ON findings(category)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

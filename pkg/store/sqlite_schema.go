package store

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion is the schema this package creates. A database
// reporting a newer version was written by a later release and is refused.
const CurrentSchemaVersion = 1

// getSchemaVersion returns the stored schema version, or 0 for a database
// that has never been initialized.
func getSchemaVersion(db *sql.DB) (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: failed to check schema_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: failed to get schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			migrated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// migrateSchema creates the schema on a fresh database and verifies the
// version of an existing one. It is idempotent.
func migrateSchema(db *sql.DB) error {
	version, err := getSchemaVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than supported %d", ErrCorrupted, version, CurrentSchemaVersion)
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if err := createSchema(db); err != nil {
		return fmt.Errorf("store: schema setup failed: %w", err)
	}
	return nil
}

func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS vault_records (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vault_records: %w", err)
	}
	if err := setSchemaVersion(tx, CurrentSchemaVersion); err != nil {
		return err
	}
	return tx.Commit()
}

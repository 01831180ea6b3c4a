package store

import (
	"database/sql"
	"fmt"

	"fruity/internal/logging"
)

// Schema versions:
// v1: preferences (key, value)
// v2: added updated_at
const CurrentSchemaVersion = 2

// Migration adds a column missing from databases written by older versions.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

var pendingMigrations = []Migration{
	{2, "preferences", "updated_at", "DATETIME"},
}

// migrate brings db up to CurrentSchemaVersion and records the result.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create preferences schema: %w", err)
	}

	from := GetSchemaVersion(db)
	if from >= CurrentSchemaVersion {
		logging.StoreDebug("preferences schema at v%d", from)
		return nil
	}

	for _, m := range pendingMigrations {
		if m.Version <= from || columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration v%d (%s.%s): %w", m.Version, m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
	}

	if _, err := db.Exec("INSERT OR REPLACE INTO schema_versions (version) VALUES (?)", CurrentSchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	logging.Store("preferences schema migrated v%d -> v%d", from, CurrentSchemaVersion)
	return nil
}

// GetSchemaVersion returns the recorded schema version, or infers it from
// the table layout for databases that predate version tracking.
func GetSchemaVersion(db *sql.DB) int {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	if err == nil && version > 0 {
		return version
	}

	switch {
	case !tableExists(db, "preferences"):
		return 0
	case columnExists(db, "preferences", "updated_at"):
		return 2
	default:
		return 1
	}
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count); err != nil {
		return false
	}
	return count > 0
}

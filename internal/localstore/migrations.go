package localstore

import (
	"database/sql"
	"fmt"
)

// columnExists checks whether a column exists on a table.
func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             sql.NullString
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

// getSchemaVersion returns the current schema version, or 0 if unset.
func (s *Store) getSchemaVersion() int {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'version'`).Scan(&value)
	if err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(value, "%d", &v)
	return v
}

func (s *Store) setSchemaVersion(v int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`, fmt.Sprintf("%d", v))
	return err
}

// runMigrations applies any migration steps between the on-disk schema
// version and SchemaVersion. Each step must be idempotent (guarded by
// columnExists) so re-running Open on an already-migrated
// database is a no-op.
func (s *Store) runMigrations() error {
	current := s.getSchemaVersion()
	if current >= SchemaVersion {
		return nil
	}

	// Step 1 (v0 -> v1): nothing beyond the base schema today.

	if current < 2 {
		// Step 2 (v1 -> v2): track the last server version applied to each
		// document, so the conflict rule (§4.4.1) can tell whether the
		// server has moved since this client last wrote.
		for _, table := range tombstoneTables {
			has, err := s.columnExists(table, "remote_version")
			if err != nil {
				return fmt.Errorf("check remote_version column on %s: %w", table, err)
			}
			if !has {
				if _, err := s.conn.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN remote_version INTEGER NOT NULL DEFAULT 0`, table)); err != nil {
					return fmt.Errorf("add remote_version column to %s: %w", table, err)
				}
			}
		}
	}

	return s.setSchemaVersion(SchemaVersion)
}

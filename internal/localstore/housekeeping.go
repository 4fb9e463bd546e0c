package localstore

import (
	"database/sql"
	"fmt"
)

// runStartupHousekeeping runs on every Open: it hard-deletes tombstones
// that have sat past staleTombstoneGC and have no op left in sync_queue
// or failed_operations. Failures here
// are logged and swallowed by the caller — housekeeping must never block
// startup (spec §6, "housekeeping never blocks the caller").
func (s *Store) runStartupHousekeeping() error {
	cutoff := s.clock.Now().Add(-staleTombstoneGC).Unix()
	return s.withWriteLock(func(tx *sql.Tx) error {
		for _, table := range tombstoneTables {
			if _, err := tx.Exec(
				fmt.Sprintf(`DELETE FROM %[1]s WHERE sync_status = 'deleted' AND last_modified < ?
					AND NOT EXISTS (SELECT 1 FROM sync_queue WHERE collection = ? AND document_id = %[1]s.id)
					AND NOT EXISTS (SELECT 1 FROM failed_operations WHERE collection = ? AND document_id = %[1]s.id)`, table),
				cutoff, table, table,
			); err != nil {
				return fmt.Errorf("gc stale tombstones in %s: %w", table, err)
			}
		}
		return nil
	})
}

// tombstoneTables lists every table carrying a sync_status column, in the
// order housekeeping sweeps them.
var tombstoneTables = []string{
	"food_log_entries",
	"perishable_items",
	"weight_entries",
	"user_settings",
	"fasting_plans",
	"fasting_sessions",
	"reaction_logs",
	"favorite_foods",
}

// hardDelete permanently removes a single document from its collection
// table, bypassing the tombstone stage entirely. Used once the sync engine
// has confirmed the remote delete has settled (I5).
func (s *Store) hardDelete(table, id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		_, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
		return err
	})
}

// cleanupDeletedRecords hard-deletes tombstoned rows across all
// collections, regardless of age, but only once the tombstone's delete has
// actually settled: a row whose delete op is still sitting in sync_queue
// (not yet applied) or failed_operations (dead-lettered, awaiting retry) is
// left alone, since the tombstone is still load-bearing for dedup and for
// a retry to find (I5). Called by the sync engine after a drain completes;
// most deletes are already hard-deleted by CompleteOp by then, so this is
// the safety net for the ones that weren't.
func (s *Store) cleanupDeletedRecords() error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		for _, table := range tombstoneTables {
			if _, err := tx.Exec(fmt.Sprintf(
				`DELETE FROM %[1]s WHERE sync_status = 'deleted'
					AND NOT EXISTS (SELECT 1 FROM sync_queue WHERE collection = ? AND document_id = %[1]s.id)
					AND NOT EXISTS (SELECT 1 FROM failed_operations WHERE collection = ? AND document_id = %[1]s.id)`, table),
				table, table,
			); err != nil {
				return fmt.Errorf("cleanup deleted records in %s: %w", table, err)
			}
		}
		return nil
	})
}

// deleteAllUserData wipes every row from every domain table plus the sync
// queue, dead-letter table, and conflict log, then reclaims disk space. Used
// by the CLI's purge command and by account sign-out.
func (s *Store) deleteAllUserData() error {
	err := s.withWriteLock(func(tx *sql.Tx) error {
		for _, table := range tombstoneTables {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
				return fmt.Errorf("wipe %s: %w", table, err)
			}
		}
		for _, table := range []string{"sync_queue", "failed_operations", "sync_conflicts"} {
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
				return fmt.Errorf("wipe %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = s.conn.Exec("VACUUM")
	return err
}

package localstore

import (
	"database/sql"
	"fmt"

	"github.com/akeen90/nutrasafe-beta-sub009/internal/models"
)

// ReadyOperations returns up to limit queue rows whose backoff has
// elapsed, oldest first — the sync engine's drain-loop source (spec §4.4
// step 2).
func (s *Store) ReadyOperations(limit int) ([]QueuedOp, error) {
	return s.readyOperations(limit)
}

// PendingCount reports the "N changes pending" count (spec §7).
func (s *Store) PendingCount() (int, error) {
	return s.pendingCount()
}

// FailedOperations lists dead-lettered ops for the "N changes need
// attention" indicator and the CLI's conflict/retry surfaces.
func (s *Store) FailedOperations() ([]FailedOp, error) {
	return s.failedOperations()
}

// RetryFailedOperation re-queues a single dead-lettered op.
func (s *Store) RetryFailedOperation(id string) error {
	return s.retryFailed(id)
}

// CompleteOp is called by the sync engine after a queued operation has
// been applied to the remote store successfully: it removes the queue row
// and, per spec §4.4.6, transitions the document either to hard-deleted
// (delete ops) or synced (add/update ops).
func (s *Store) CompleteOp(op QueuedOp) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		if err := s.removeOp(tx, op.ID); err != nil {
			return fmt.Errorf("remove completed op: %w", err)
		}
		if op.Type == string(models.OpDelete) {
			_, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, op.Collection), op.DocumentID)
			if err != nil {
				return fmt.Errorf("hard delete %s/%s: %w", op.Collection, op.DocumentID, err)
			}
			return nil
		}
		_, err := tx.Exec(
			fmt.Sprintf(`UPDATE %s SET sync_status = 'synced' WHERE id = ? AND sync_status != 'deleted'`, op.Collection),
			op.DocumentID,
		)
		if err != nil {
			return fmt.Errorf("mark synced %s/%s: %w", op.Collection, op.DocumentID, err)
		}
		return nil
	})
}

// FailOp is called when an operation's remote apply attempt failed. It
// bumps the retry counter and reschedules with backoff, or — once
// retryCount has reached maxRetry — dead-letters the op and removes it
// from the queue (spec §4.4 step 5).
func (s *Store) FailOp(op QueuedOp, maxRetry int, errMsg string) (deadLettered bool, err error) {
	err = s.withWriteLock(func(tx *sql.Tx) error {
		if op.RetryCount >= maxRetry {
			return s.deadLetter(tx, op, errMsg)
		}
		_, err := s.bumpRetry(tx, op.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return op.RetryCount >= maxRetry, nil
}

// CleanupDeletedRecords hard-deletes tombstoned rows that have no op left
// in sync_queue or failed_operations (spec §4.4 step 6, run once per drain
// after all batches complete).
func (s *Store) CleanupDeletedRecords() error {
	return s.cleanupDeletedRecords()
}

// DeleteAllUserData wipes every table, used on sign-out (spec §4.4.5,
// P7 auth isolation).
func (s *Store) DeleteAllUserData() error {
	return s.deleteAllUserData()
}

// RemoveQueuedOp deletes a queue row outright with no side effects on the
// document table — used when an add/update op is superseded by a pending
// or applied delete for the same document (spec §4.4 step 5).
func (s *Store) RemoveQueuedOp(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		return s.removeOp(tx, id)
	})
}

// IsTombstoned is the exported ResurrectionGuard predicate the sync engine
// consults before applying a queued add/update (spec §4.3).
func (s *Store) IsTombstoned(collection, id string) (bool, error) {
	return s.isTombstoned(models.Collection(collection), id)
}

// HasPendingDelete is the exported ResurrectionGuard predicate the sync
// engine consults before applying a queued add/update (spec §4.3).
func (s *Store) HasPendingDelete(collection, id string) (bool, error) {
	return s.hasPendingDelete(models.Collection(collection), id)
}

// GetRemoteVersion returns the last server version number this client
// observed for a document, or 0 if it has never been synced.
func (s *Store) GetRemoteVersion(collection, id string) (int64, error) {
	var v int64
	err := s.conn.QueryRow(fmt.Sprintf(`SELECT remote_version FROM %s WHERE id = ?`, collection), id).Scan(&v)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

// SetRemoteVersion records the server version a document was written at,
// so the next push's conflict check has an accurate localVersion.
func (s *Store) SetRemoteVersion(collection, id string, version int64) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		_, err := tx.Exec(fmt.Sprintf(`UPDATE %s SET remote_version = ? WHERE id = ?`, collection), version, id)
		return err
	})
}

// RecordConflict inserts a row into sync_conflicts recording both the
// local and server document blobs and their versions, per the conflict
// rule in spec §4.4.1. id follows the "<collection>_<documentId>"
// convention from §6 so re-detecting the same conflict overwrites rather
// than duplicates.
func (s *Store) RecordConflict(collection, documentID string, localBlob, serverBlob []byte, localVersion, serverVersion int64) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		id := collection + "_" + documentID
		now := s.nowSeconds()
		_, err := tx.Exec(
			`INSERT INTO sync_conflicts (id, collection, document_id, local_data, server_data, local_version, server_version, detected_at, resolved)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
			 ON CONFLICT(id) DO UPDATE SET
				local_data = excluded.local_data, server_data = excluded.server_data,
				local_version = excluded.local_version, server_version = excluded.server_version,
				detected_at = excluded.detected_at, resolved = 0`,
			id, collection, documentID, localBlob, serverBlob, localVersion, serverVersion, now,
		)
		return err
	})
}

// ListConflicts returns unresolved conflicts, most recently detected first.
func (s *Store) ListConflicts() ([]ConflictRow, error) {
	rows, err := s.conn.Query(
		`SELECT id, collection, document_id, local_data, server_data, local_version, server_version, detected_at, resolved
		 FROM sync_conflicts WHERE resolved = 0 ORDER BY detected_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConflictRow
	for rows.Next() {
		var c ConflictRow
		var resolved int
		if err := rows.Scan(&c.ID, &c.Collection, &c.DocumentID, &c.LocalData, &c.ServerData, &c.LocalVersion, &c.ServerVersion, &c.DetectedAt, &resolved); err != nil {
			return nil, err
		}
		c.Resolved = resolved != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// ResolveConflict marks a conflict row as reviewed.
func (s *Store) ResolveConflict(id string) error {
	return s.withWriteLock(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE sync_conflicts SET resolved = 1 WHERE id = ?`, id)
		return err
	})
}

// ConflictRow is one recorded sync conflict.
type ConflictRow struct {
	ID            string
	Collection    string
	DocumentID    string
	LocalData     []byte
	ServerData    []byte
	LocalVersion  int64
	ServerVersion int64
	DetectedAt    float64
	Resolved      bool
}
